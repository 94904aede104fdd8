package report

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/decisym/torcollect/internal/model"
)

// JSONWriter outputs collection reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full collection in JSON format.
func (w *JSONWriter) Write(collection *model.Collection) (int, error) {
	return w.writeJSON(collection)
}

// WriteSummary outputs only a condensed summary in JSON format.
func (w *JSONWriter) WriteSummary(collection *model.Collection) (int, error) {
	return w.writeJSON(NewSummary(collection))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v interface{}) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// Summary is a condensed view of a collection run.
// It carries counts and run metadata without the full artifact bodies,
// suitable for dashboards and quick programmatic checks.
type Summary struct {
	// OutputDir is where collected artifacts were written.
	OutputDir string `json:"output_dir,omitempty"`

	// StartedAt is when the collection run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the collection run completed.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// ArtifactCount is the number of collected artifacts.
	ArtifactCount int `json:"artifact_count"`

	// TotalBytes is the combined size of all collected artifacts.
	TotalBytes int64 `json:"total_bytes"`

	// FindingCount is the total number of findings across all severities.
	FindingCount int `json:"finding_count"`

	// BySeverity maps lowercase severity names to finding counts.
	// Severities with zero findings are omitted.
	BySeverity map[string]int `json:"by_severity,omitempty"`

	// Steps lists the performed workflow steps in order.
	Steps []string `json:"steps,omitempty"`

	// Errors lists non-fatal errors encountered during the run.
	Errors []string `json:"errors,omitempty"`

	// Interrupted is true if the run was cancelled before completion.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewSummary builds a Summary from a collection.
func NewSummary(collection *model.Collection) *Summary {
	s := &Summary{
		OutputDir:     collection.OutputDir,
		StartedAt:     collection.StartedAt,
		FinishedAt:    collection.FinishedAt,
		ArtifactCount: len(collection.Artifacts),
		TotalBytes:    collection.TotalBytes(),
		FindingCount:  collection.TotalFindings(),
		Steps:         collection.PerformedSteps,
		Errors:        collection.Errors,
		Interrupted:   collection.Interrupted,
	}

	severities := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	}
	for _, sev := range severities {
		if count := collection.CountBySeverity(sev); count > 0 {
			if s.BySeverity == nil {
				s.BySeverity = make(map[string]int)
			}
			s.BySeverity[strings.ToLower(sev.String())] = count
		}
	}

	return s
}

// JSONReport is a wrapper for the full collection with additional metadata.
// This is used when writing the complete report with contextual information.
//
// Design decision: We wrap the collection rather than modifying Collection
// because this allows us to add output-specific fields without polluting
// the core data structure.
type JSONReport struct {
	// Version is the torcollect version that generated this report.
	Version string `json:"version"`

	// Collection is the full collection result.
	Collection *model.Collection `json:"collection"`

	// Summary is the condensed view for quick access.
	Summary *Summary `json:"summary,omitempty"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(collection *model.Collection, version string) *JSONReport {
	return &JSONReport{
		Version:    version,
		Collection: collection,
		Summary:    NewSummary(collection),
	}
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the torcollect version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full collection wrapped with metadata.
func (w *FullJSONWriter) Write(collection *model.Collection) (int, error) {
	return w.writeJSON(NewJSONReport(collection, w.version))
}
