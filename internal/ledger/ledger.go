package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/tor"
)

// fileName is the ledger database file inside the data directory.
const fileName = "ledger.db"

// DefaultRecentLimit is used when a listing limit is zero or negative.
const DefaultRecentLimit = 20

// Ledger records completed fetches in a SQLite database.
//
// Design decision: We keep one ledger file per data directory rather than
// one per collection run. Provenance questions span runs ("when did we
// last fetch this URL, and did the content change"), and a single file
// keeps them answerable with one query.
type Ledger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default ledger options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Ledger in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dir, fileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("ledger not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check ledger path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer; the ledger is write-mostly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the path of the ledger database file.
func (l *Ledger) Path() string {
	return l.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (l *Ledger) createTables() error {
	schema := `
	-- Fetches record individual completed downloads, append-only.
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		final_url TEXT,
		method TEXT NOT NULL,
		filename TEXT,
		path TEXT,
		sha256 TEXT,
		size INTEGER DEFAULT 0,
		status_line TEXT,
		content_type TEXT,
		source TEXT,
		onion INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		artifact_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_url ON fetches(url);
	CREATE INDEX IF NOT EXISTS idx_fetches_sha256 ON fetches(sha256);
	CREATE INDEX IF NOT EXISTS idx_fetches_fetched_at ON fetches(fetched_at);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// Entry is the indexed summary of one recorded fetch. It carries what a
// history listing shows without loading the full artifact JSON.
type Entry struct {
	// ID is the unique identifier of the record in the database.
	ID int64

	// URL is the originally requested URL.
	URL string

	// FinalURL is the URL that produced the body after redirects.
	FinalURL string

	// Method is the HTTP method used.
	Method string

	// Filename is the resolved local filename.
	Filename string

	// Path is where the body was written, empty for in-memory fetches.
	Path string

	// SHA256 is the hex-encoded digest of the body.
	SHA256 string

	// Size is the body size in bytes.
	Size int64

	// StatusLine is the final HTTP status line.
	StatusLine string

	// ContentType is the final response content type, if any.
	ContentType string

	// Source names the workflow stage that produced the fetch.
	Source string

	// Onion reports whether the requested host was an onion service.
	Onion bool

	// Elapsed is the wall-clock duration of the fetch.
	Elapsed time.Duration

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time
}

// Record appends one completed fetch to the ledger and returns its row ID.
// The onion column is derived from the requested URL's host.
func (l *Ledger) Record(ctx context.Context, artifact *model.Artifact) (int64, error) {
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize artifact: %w", err)
	}

	query := `
	INSERT INTO fetches (url, final_url, method, filename, path, sha256, size,
		status_line, content_type, source, onion, elapsed_ms, fetched_at, artifact_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	fetchedAt := artifact.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	result, err := l.db.ExecContext(ctx, query,
		artifact.URL,
		artifact.FinalURL,
		artifact.Method,
		artifact.Filename,
		artifact.Path,
		artifact.SHA256,
		artifact.Size,
		artifact.StatusLine,
		artifact.ContentType,
		artifact.Source,
		boolToInt(onionURL(artifact.URL)),
		artifact.Elapsed.Milliseconds(),
		fetchedAt.UTC().Format("2006-01-02 15:04:05"),
		string(artifactJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record fetch: %w", err)
	}

	return result.LastInsertId()
}

// Recent returns the most recent entries, newest first. A non-positive
// limit falls back to DefaultRecentLimit.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
	SELECT id, url, final_url, method, filename, path, sha256, size,
		status_line, content_type, source, onion, elapsed_ms, fetched_at
	FROM fetches
	ORDER BY fetched_at DESC, id DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var onion int
		var elapsedMS int64
		var fetchedAt string

		err := rows.Scan(
			&entry.ID,
			&entry.URL,
			&entry.FinalURL,
			&entry.Method,
			&entry.Filename,
			&entry.Path,
			&entry.SHA256,
			&entry.Size,
			&entry.StatusLine,
			&entry.ContentType,
			&entry.Source,
			&onion,
			&elapsedMS,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch entry: %w", err)
		}

		entry.Onion = onion != 0
		entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entry.FetchedAt = parseTimestamp(fetchedAt)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// RecentArtifacts returns the full artifacts of the most recent fetches,
// newest first. Rows whose stored JSON no longer parses are skipped.
func (l *Ledger) RecentArtifacts(ctx context.Context, limit int) ([]*model.Artifact, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
	SELECT artifact_json FROM fetches
	ORDER BY fetched_at DESC, id DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	var artifacts []*model.Artifact
	for rows.Next() {
		var artifactJSON string
		if err := rows.Scan(&artifactJSON); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		var artifact model.Artifact
		if err := json.Unmarshal([]byte(artifactJSON), &artifact); err != nil {
			continue // Skip malformed artifacts
		}
		artifacts = append(artifacts, &artifact)
	}

	return artifacts, rows.Err()
}

// onionURL reports whether rawURL points at an onion service.
func onionURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return tor.IsOnionHost(u.Hostname())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
