package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/decisym/torcollect/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and visual severity indicators.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full collection report in human-readable format.
func (w *SimpleWriter) Write(collection *model.Collection) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, collection)
	w.writeSummary(&sb, collection)
	w.writeArtifacts(&sb, collection)
	w.writeFindings(&sb, collection)
	w.writeErrors(&sb, collection)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs only the run header and severity summary.
func (w *SimpleWriter) WriteSummary(collection *model.Collection) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, collection)
	w.writeSummary(&sb, collection)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, collection *model.Collection) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    TORCOLLECT COLLECTION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Output Directory: %s\n", collection.OutputDir))
	sb.WriteString(fmt.Sprintf("Started:          %s\n", collection.StartedAt.Format("2006-01-02 15:04:05 MST")))
	if !collection.FinishedAt.IsZero() {
		duration := collection.FinishedAt.Sub(collection.StartedAt).Round(timeRounding)
		sb.WriteString(fmt.Sprintf("Duration:         %s\n", duration))
	}
	sb.WriteString(fmt.Sprintf("Artifacts:        %d (%s)\n", len(collection.Artifacts), FormatBytes(collection.TotalBytes())))

	if collection.Interrupted {
		sb.WriteString("Status:           INTERRUPTED (partial results)\n")
	} else if len(collection.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("Status:           COMPLETED WITH %d ERROR(S)\n", len(collection.Errors)))
	} else {
		sb.WriteString("Status:           Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, collection *model.Collection) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SEVERITY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	// Create a visual summary
	sb.WriteString(fmt.Sprintf("  CRITICAL: %d\n", collection.CountBySeverity(model.SeverityCritical)))
	sb.WriteString(fmt.Sprintf("  HIGH:     %d\n", collection.CountBySeverity(model.SeverityHigh)))
	sb.WriteString(fmt.Sprintf("  MEDIUM:   %d\n", collection.CountBySeverity(model.SeverityMedium)))
	sb.WriteString(fmt.Sprintf("  LOW:      %d\n", collection.CountBySeverity(model.SeverityLow)))
	sb.WriteString(fmt.Sprintf("  INFO:     %d\n", collection.CountBySeverity(model.SeverityInfo)))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d findings\n", collection.TotalFindings()))
	sb.WriteString("\n")
}

// writeArtifacts writes the collected artifacts section.
func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, collection *model.Collection) {
	if len(collection.Artifacts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ARTIFACTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(collection.Artifacts) == 0 {
		sb.WriteString("  No artifacts collected\n")
	} else {
		for i := range collection.Artifacts {
			a := &collection.Artifacts[i]
			sb.WriteString(fmt.Sprintf("  [+] %-10s %s (%s)\n", sourceTitle(a.Source), a.Filename, FormatBytes(a.Size)))
			if w.verbose {
				sb.WriteString(fmt.Sprintf("      URL:    %s\n", a.URL))
				sb.WriteString(fmt.Sprintf("      SHA256: %s\n", a.SHA256))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, collection *model.Collection) {
	if !collection.HasFindings() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FINDINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	// Write findings in order of severity (critical first)
	severities := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	}

	for _, severity := range severities {
		findings := collection.FindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}

		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	// Severity header with visual indicator
	indicator := w.getSeverityIndicator(severity)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, severity.String()))

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, finding := range findings {
		sb.WriteString(fmt.Sprintf("  * %s\n", finding.Title))
		if finding.Value != "" {
			sb.WriteString(fmt.Sprintf("    Value: %s\n", finding.Value))
		}
		if finding.Location != "" {
			sb.WriteString(fmt.Sprintf("    Location: %s\n", finding.Location))
		}
		if w.verbose && finding.Description != "" {
			sb.WriteString(fmt.Sprintf("    Description: %s\n", finding.Description))
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeErrors writes the non-fatal errors section.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, collection *model.Collection) {
	if len(collection.Errors) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ERRORS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(collection.Errors) == 0 {
		sb.WriteString("  No errors\n")
	} else {
		for _, msg := range collection.Errors {
			sb.WriteString(fmt.Sprintf("  [!] %s\n", msg))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by torcollect\n")
	sb.WriteString("https://github.com/decisym/torcollect\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
