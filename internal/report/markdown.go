package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/decisym/torcollect/internal/model"
)

// MarkdownWriter outputs collection reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full collection report in Markdown format.
func (w *MarkdownWriter) Write(collection *model.Collection) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, collection)
	w.writeSummary(md, collection)
	w.writeSteps(md, collection)
	w.writeArtifacts(md, collection)
	w.writeFindings(md, collection)
	w.writeErrors(md, collection)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the run header and severity summary.
func (w *MarkdownWriter) WriteSummary(collection *model.Collection) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, collection)
	w.writeSummary(md, collection)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, collection *model.Collection) {
	md.H1("Collection Report")
	md.PlainText("")

	duration := "running"
	if !collection.FinishedAt.IsZero() {
		duration = collection.FinishedAt.Sub(collection.StartedAt).Round(timeRounding).String()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Output Directory", "`" + collection.OutputDir + "`"},
			{"Started", collection.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", duration},
			{"Artifacts", strconv.Itoa(len(collection.Artifacts))},
			{"Total Size", FormatBytes(collection.TotalBytes())},
			{"Status", w.getStatusText(collection)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on collection state.
func (w *MarkdownWriter) getStatusText(collection *model.Collection) string {
	if collection.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if len(collection.Errors) > 0 {
		return "❌ Completed with " + strconv.Itoa(len(collection.Errors)) + " error(s)"
	}
	return "✅ Complete"
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, collection *model.Collection) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(collection.CountBySeverity(model.SeverityCritical))},
			{"🟠 High", strconv.Itoa(collection.CountBySeverity(model.SeverityHigh))},
			{"🟡 Medium", strconv.Itoa(collection.CountBySeverity(model.SeverityMedium))},
			{"🔵 Low", strconv.Itoa(collection.CountBySeverity(model.SeverityLow))},
			{"⚪ Info", strconv.Itoa(collection.CountBySeverity(model.SeverityInfo))},
			{"**Total**", "**" + strconv.Itoa(collection.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if collection.HasFindings() {
		w.writePieChart(md, collection)
	}

	w.writeAlert(md, collection)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, collection *model.Collection) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	severities := []struct {
		level model.Severity
		label string
	}{
		{model.SeverityCritical, "Critical"},
		{model.SeverityHigh, "High"},
		{model.SeverityMedium, "Medium"},
		{model.SeverityLow, "Low"},
		{model.SeverityInfo, "Info"},
	}
	for _, sev := range severities {
		if count := collection.CountBySeverity(sev.level); count > 0 {
			chart.LabelAndIntValue(sev.label, uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, collection *model.Collection) {
	critical := collection.CountBySeverity(model.SeverityCritical)
	high := collection.CountBySeverity(model.SeverityHigh)
	medium := collection.CountBySeverity(model.SeverityMedium)

	switch {
	case critical > 0:
		md.Cautionf(
			"Critical findings detected! %d finding(s) likely identify a person or place outright.",
			critical,
		)
	case high > 0:
		md.Warningf(
			"High severity findings detected. %d finding(s) should be reviewed before sharing artifacts.",
			high,
		)
	case medium > 0:
		md.Importantf(
			"Medium severity findings present. %d finding(s) may affect artifact provenance.",
			medium,
		)
	case collection.TotalFindings() > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No identifying metadata detected in collected artifacts.")
	}
	md.PlainText("")
}

// writeSteps writes the performed workflow steps section.
func (w *MarkdownWriter) writeSteps(md *markdown.Markdown, collection *model.Collection) {
	if len(collection.PerformedSteps) == 0 {
		return
	}

	md.H2("Workflow Steps")
	md.PlainText("")

	steps := make([]string, len(collection.PerformedSteps))
	for i, step := range collection.PerformedSteps {
		steps[i] = sourceTitle(step)
	}
	md.BulletList(steps...)
	md.PlainText("")
}

// writeArtifacts writes the artifact table.
func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, collection *model.Collection) {
	md.H2("Artifacts")
	md.PlainText("")

	if len(collection.Artifacts) == 0 {
		md.PlainText("No artifacts were collected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(collection.Artifacts))
	for i := range collection.Artifacts {
		a := &collection.Artifacts[i]
		rows[i] = []string{
			sourceTitle(a.Source),
			a.Filename,
			FormatBytes(a.Size),
			a.StatusLine,
			shortDigest(a.SHA256),
			truncateString(a.URL, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source", "File", "Size", "Status", "SHA-256", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, collection *model.Collection) {
	md.H2("Findings")
	md.PlainText("")

	if !collection.HasFindings() {
		md.PlainText("No findings were raised.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityCritical, "### 🔴 Critical"},
		{model.SeverityHigh, "### 🟠 High"},
		{model.SeverityMedium, "### 🟡 Medium"},
		{model.SeverityLow, "### 🔵 Low"},
		{model.SeverityInfo, "### ⚪ Info"},
	}

	for _, sev := range severities {
		findings := collection.FindingsBySeverity(sev.level)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	headers := []string{"Title", "Value", "Location", "Recommendation"}

	rows := make([][]string, len(findings))
	for i, f := range findings {
		value := f.Value
		if value == "" {
			value = "-"
		}
		location := f.Location
		if location == "" {
			location = "-"
		}
		rec := f.Recommendation
		if rec == "" {
			rec = "-"
		}

		rows[i] = []string{
			f.Title,
			truncateString(value, 50),
			truncateString(location, 40),
			truncateString(rec, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Description != "" {
			md.Details(f.Title, f.Description)
		}
	}
	md.PlainText("")
}

// writeErrors writes the non-fatal errors section.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, collection *model.Collection) {
	if len(collection.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	md.BulletList(collection.Errors...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [torcollect](https://github.com/decisym/torcollect)*")
}

// shortDigest abbreviates a hex digest for table display.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		if digest == "" {
			return "-"
		}
		return digest
	}
	return digest[:12] + "…"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
