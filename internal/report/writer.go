package report

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/decisym/torcollect/internal/model"
)

// timeRounding is the precision used when displaying run durations.
const timeRounding = time.Second

// Writer defines the interface for report output.
// Implementations write collection results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the complete collection report to the configured
	// destination. Returns the number of bytes written and any error.
	Write(collection *model.Collection) (int, error)

	// WriteSummary outputs only a condensed summary of the collection.
	// This is useful for quick overviews without full details.
	WriteSummary(collection *model.Collection) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write collections, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the collection to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(collection *model.Collection) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(collection)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(collection *model.Collection) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(collection)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// titleCaser renders workflow source names for display.
var titleCaser = cases.Title(language.English)

// sourceTitle returns the display form of a workflow source name,
// e.g. "wikidata" becomes "Wikidata". Empty sources display as "-".
func sourceTitle(source string) string {
	if source == "" {
		return "-"
	}
	return titleCaser.String(source)
}

// FormatBytes renders a byte count in a human-readable unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
