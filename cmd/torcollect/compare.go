package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/report"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares two collection report files and shows what changed
// between the runs.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare OLD_REPORT NEW_REPORT",
		Short: "Compare two collection report files",
		Long: `Compare displays differences between two collection runs.

Both arguments are JSON report files written with '--json -r FILE' by the
collect or casestudy command. The comparison shows:
- Artifacts that were added, removed, or whose content changed (by SHA-256)
- New metadata findings that appeared since the previous run
- Resolved findings that are no longer present
- Changes in finding severity levels

Examples:
  # Collect the same service twice, then compare the runs
  torcollect collect --json -r monday.json https://example.onion/
  torcollect collect --json -r friday.json https://example.onion/
  torcollect compare monday.json friday.json

  # Output the comparison in JSON format
  torcollect compare --json monday.json friday.json

  # Output the comparison in Markdown format
  torcollect compare --markdown monday.json friday.json`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("cannot use --json and --markdown together")
	}

	previous, err := loadReportFile(args[0])
	if err != nil {
		return err
	}
	current, err := loadReportFile(args[1])
	if err != nil {
		return err
	}

	comparison := compareCollections(previous, current)
	comparison.PreviousReport = args[0]
	comparison.CurrentReport = args[1]

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// loadReportFile reads a JSON report file and extracts the collection data.
// It accepts both the wrapped report written by '--json -r FILE' and a bare
// collection object.
func loadReportFile(path string) (*model.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var rep report.JSONReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse report file %s: %w", path, err)
	}
	if rep.Collection != nil {
		return rep.Collection, nil
	}

	var collection model.Collection
	if err := json.Unmarshal(data, &collection); err != nil || collection.StartedAt.IsZero() {
		return nil, fmt.Errorf("no collection data in %s (expected a report written with --json)", path)
	}
	return &collection, nil
}

// ComparisonResult holds the result of comparing two collection runs.
type ComparisonResult struct {
	// PreviousReport is the path of the older report file.
	PreviousReport string `json:"previous_report"`

	// CurrentReport is the path of the newer report file.
	CurrentReport string `json:"current_report"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunMetadata `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunMetadata `json:"current_run"`

	// AddedArtifacts contains artifacts present only in the newer run.
	AddedArtifacts []model.Artifact `json:"added_artifacts,omitempty"`

	// RemovedArtifacts contains artifacts present only in the older run.
	RemovedArtifacts []model.Artifact `json:"removed_artifacts,omitempty"`

	// ChangedArtifacts contains artifacts whose content digest differs
	// between the runs.
	ChangedArtifacts []ArtifactChange `json:"changed_artifacts,omitempty"`

	// UnchangedArtifacts is the number of artifacts with identical content
	// in both runs.
	UnchangedArtifacts int `json:"unchanged_artifacts"`

	// NewFindings contains findings that are new in the current run.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings from the previous run that are no
	// longer present.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedFindings is the number of findings present in both runs.
	UnchangedFindings int `json:"unchanged_findings"`

	// RiskChange describes the overall change in risk level.
	RiskChange RiskChange `json:"risk_change"`
}

// RunMetadata contains metadata about one collection run for comparison
// display.
type RunMetadata struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// ArtifactCount is the number of collected artifacts.
	ArtifactCount int `json:"artifact_count"`

	// TotalBytes is the combined size of all collected artifacts.
	TotalBytes int64 `json:"total_bytes"`

	// TotalFindings is the total number of findings in this run.
	TotalFindings int `json:"total_findings"`

	// CriticalCount is the number of critical findings.
	CriticalCount int `json:"critical_count"`

	// HighCount is the number of high severity findings.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity findings.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity findings.
	LowCount int `json:"low_count"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"info_count"`
}

// ArtifactChange describes an artifact present in both runs whose fetched
// content differs.
type ArtifactChange struct {
	// URL is the artifact URL, or "file:NAME" for derived artifacts.
	URL string `json:"url"`

	// Filename is the local filename of the artifact.
	Filename string `json:"filename"`

	// PreviousSHA256 is the content digest from the older run.
	PreviousSHA256 string `json:"previous_sha256"`

	// CurrentSHA256 is the content digest from the newer run.
	CurrentSHA256 string `json:"current_sha256"`

	// PreviousSize is the body size from the older run.
	PreviousSize int64 `json:"previous_size"`

	// CurrentSize is the body size from the newer run.
	CurrentSize int64 `json:"current_size"`
}

// RiskChange describes the change in risk level between runs.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// CriticalDelta is the change in critical findings count.
	CriticalDelta int `json:"critical_delta"`

	// HighDelta is the change in high severity findings count.
	HighDelta int `json:"high_delta"`

	// MediumDelta is the change in medium severity findings count.
	MediumDelta int `json:"medium_delta"`

	// LowDelta is the change in low severity findings count.
	LowDelta int `json:"low_delta"`

	// InfoDelta is the change in informational findings count.
	InfoDelta int `json:"info_delta"`
}

// compareCollections compares two collection runs and generates a
// comparison result. Artifacts and findings are walked in input order so
// the output is deterministic.
func compareCollections(previous, current *model.Collection) *ComparisonResult {
	result := &ComparisonResult{
		PreviousRun: runMetadata(previous),
		CurrentRun:  runMetadata(current),
	}

	previousArtifacts := artifactMap(previous)
	currentArtifacts := artifactMap(current)

	for i := range current.Artifacts {
		a := &current.Artifacts[i]
		prev, exists := previousArtifacts[artifactKey(a)]
		if !exists {
			result.AddedArtifacts = append(result.AddedArtifacts, *a)
			continue
		}
		if prev.SHA256 != a.SHA256 {
			result.ChangedArtifacts = append(result.ChangedArtifacts, ArtifactChange{
				URL:            artifactKey(a),
				Filename:       a.Filename,
				PreviousSHA256: prev.SHA256,
				CurrentSHA256:  a.SHA256,
				PreviousSize:   prev.Size,
				CurrentSize:    a.Size,
			})
			continue
		}
		result.UnchangedArtifacts++
	}
	for i := range previous.Artifacts {
		a := &previous.Artifacts[i]
		if _, exists := currentArtifacts[artifactKey(a)]; !exists {
			result.RemovedArtifacts = append(result.RemovedArtifacts, *a)
		}
	}

	previousFindings := make(map[string]struct{}, len(previous.Findings))
	for _, f := range previous.Findings {
		previousFindings[findingKey(f)] = struct{}{}
	}
	currentFindings := make(map[string]struct{}, len(current.Findings))
	for _, f := range current.Findings {
		currentFindings[findingKey(f)] = struct{}{}
	}

	for _, f := range current.Findings {
		if _, exists := previousFindings[findingKey(f)]; !exists {
			result.NewFindings = append(result.NewFindings, f)
			continue
		}
		result.UnchangedFindings++
	}
	for _, f := range previous.Findings {
		if _, exists := currentFindings[findingKey(f)]; !exists {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	result.RiskChange = calculateRiskChange(result.PreviousRun, result.CurrentRun)

	return result
}

// runMetadata summarizes one collection run for comparison display.
func runMetadata(collection *model.Collection) RunMetadata {
	return RunMetadata{
		StartedAt:     collection.StartedAt,
		ArtifactCount: len(collection.Artifacts),
		TotalBytes:    collection.TotalBytes(),
		TotalFindings: collection.TotalFindings(),
		CriticalCount: collection.CountBySeverity(model.SeverityCritical),
		HighCount:     collection.CountBySeverity(model.SeverityHigh),
		MediumCount:   collection.CountBySeverity(model.SeverityMedium),
		LowCount:      collection.CountBySeverity(model.SeverityLow),
		InfoCount:     collection.CountBySeverity(model.SeverityInfo),
	}
}

// artifactMap indexes the artifacts of a run by their comparison key.
func artifactMap(collection *model.Collection) map[string]*model.Artifact {
	m := make(map[string]*model.Artifact, len(collection.Artifacts))
	for i := range collection.Artifacts {
		a := &collection.Artifacts[i]
		m[artifactKey(a)] = a
	}
	return m
}

// artifactKey identifies an artifact across runs. Fetched artifacts are
// keyed by URL; derived artifacts (graph conversions, model output) have no
// URL and are keyed by filename instead.
func artifactKey(a *model.Artifact) string {
	if a.URL != "" {
		return a.URL
	}
	return "file:" + a.Filename
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(f model.Finding) string {
	return f.Type + "|" + f.Value + "|" + f.Location
}

// calculateRiskChange calculates the change in risk between two runs.
func calculateRiskChange(previous, current RunMetadata) RiskChange {
	change := RiskChange{
		CriticalDelta: current.CriticalCount - previous.CriticalCount,
		HighDelta:     current.HighCount - previous.HighCount,
		MediumDelta:   current.MediumCount - previous.MediumCount,
		LowDelta:      current.LowCount - previous.LowCount,
		InfoDelta:     current.InfoCount - previous.InfoCount,
	}

	// Overall direction uses a weighted score so a new critical finding
	// outweighs several resolved informational ones.
	previousScore := previous.CriticalCount*100 + previous.HighCount*50 + previous.MediumCount*10 + previous.LowCount*5 + previous.InfoCount
	currentScore := current.CriticalCount*100 + current.HighCount*50 + current.MediumCount*10 + current.LowCount*5 + current.InfoCount

	if currentScore < previousScore {
		change.Direction = riskDirectionImproved
	} else if currentScore > previousScore {
		change.Direction = riskDirectionWorsened
	} else {
		change.Direction = riskDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	md := markdown.NewMarkdown(os.Stdout)

	md.H1("Report Comparison")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Report", "`" + result.PreviousReport + "`", "`" + result.CurrentReport + "`", "-"},
			{"Started", result.PreviousRun.StartedAt.Format("2006-01-02 15:04"),
				result.CurrentRun.StartedAt.Format("2006-01-02 15:04"), "-"},
			{"Artifacts", strconv.Itoa(result.PreviousRun.ArtifactCount),
				strconv.Itoa(result.CurrentRun.ArtifactCount),
				formatDelta(result.CurrentRun.ArtifactCount - result.PreviousRun.ArtifactCount)},
			{"Total Size", report.FormatBytes(result.PreviousRun.TotalBytes),
				report.FormatBytes(result.CurrentRun.TotalBytes), "-"},
			{"Critical", strconv.Itoa(result.PreviousRun.CriticalCount),
				strconv.Itoa(result.CurrentRun.CriticalCount), formatDelta(result.RiskChange.CriticalDelta)},
			{"High", strconv.Itoa(result.PreviousRun.HighCount),
				strconv.Itoa(result.CurrentRun.HighCount), formatDelta(result.RiskChange.HighDelta)},
			{"Medium", strconv.Itoa(result.PreviousRun.MediumCount),
				strconv.Itoa(result.CurrentRun.MediumCount), formatDelta(result.RiskChange.MediumDelta)},
			{"Low", strconv.Itoa(result.PreviousRun.LowCount),
				strconv.Itoa(result.CurrentRun.LowCount), formatDelta(result.RiskChange.LowDelta)},
			{"Info", strconv.Itoa(result.PreviousRun.InfoCount),
				strconv.Itoa(result.CurrentRun.InfoCount), formatDelta(result.RiskChange.InfoDelta)},
		},
	})
	md.PlainText("")

	if len(result.AddedArtifacts) > 0 {
		md.H2(fmt.Sprintf("Added Artifacts (%d)", len(result.AddedArtifacts)))
		md.PlainText("")
		items := make([]string, len(result.AddedArtifacts))
		for i := range result.AddedArtifacts {
			a := &result.AddedArtifacts[i]
			items[i] = fmt.Sprintf("`%s` (%s)", artifactKey(a), report.FormatBytes(a.Size))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.RemovedArtifacts) > 0 {
		md.H2(fmt.Sprintf("Removed Artifacts (%d)", len(result.RemovedArtifacts)))
		md.PlainText("")
		items := make([]string, len(result.RemovedArtifacts))
		for i := range result.RemovedArtifacts {
			a := &result.RemovedArtifacts[i]
			items[i] = fmt.Sprintf("`%s`", artifactKey(a))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ChangedArtifacts) > 0 {
		md.H2(fmt.Sprintf("Changed Artifacts (%d)", len(result.ChangedArtifacts)))
		md.PlainText("")
		rows := make([][]string, len(result.ChangedArtifacts))
		for i, c := range result.ChangedArtifacts {
			rows[i] = []string{
				"`" + c.URL + "`",
				shortDigestText(c.PreviousSHA256),
				shortDigestText(c.CurrentSHA256),
				report.FormatBytes(c.PreviousSize),
				report.FormatBytes(c.CurrentSize),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Previous SHA-256", "Current SHA-256", "Previous Size", "Current Size"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, len(result.NewFindings))
		for i, f := range result.NewFindings {
			items[i] = fmt.Sprintf("**[%s]** %s: %s", f.SeverityText, f.Title, f.Value)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, len(result.ResolvedFindings))
		for i, f := range result.ResolvedFindings {
			items[i] = fmt.Sprintf("~~**[%s]** %s: %s~~", f.SeverityText, f.Title, f.Value)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%d artifact(s) and %d finding(s) unchanged*",
		result.UnchangedArtifacts, result.UnchangedFindings)

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text
// format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Println("Report Comparison")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nPrevious: %s (%s, %d artifact(s))\n",
		result.PreviousReport,
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.PreviousRun.ArtifactCount)
	fmt.Printf("Current:  %s (%s, %d artifact(s))\n",
		result.CurrentReport,
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.CurrentRun.ArtifactCount)

	fmt.Printf("\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))

	fmt.Println("\nFindings Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Critical",
		result.PreviousRun.CriticalCount, result.CurrentRun.CriticalCount,
		formatDelta(result.RiskChange.CriticalDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "High",
		result.PreviousRun.HighCount, result.CurrentRun.HighCount,
		formatDelta(result.RiskChange.HighDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Medium",
		result.PreviousRun.MediumCount, result.CurrentRun.MediumCount,
		formatDelta(result.RiskChange.MediumDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Low",
		result.PreviousRun.LowCount, result.CurrentRun.LowCount,
		formatDelta(result.RiskChange.LowDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Info",
		result.PreviousRun.InfoCount, result.CurrentRun.InfoCount,
		formatDelta(result.RiskChange.InfoDelta))
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousRun.TotalFindings, result.CurrentRun.TotalFindings,
		formatDelta(result.CurrentRun.TotalFindings-result.PreviousRun.TotalFindings))

	if len(result.AddedArtifacts) > 0 {
		fmt.Printf("\nAdded Artifacts (%d):\n", len(result.AddedArtifacts))
		for i := range result.AddedArtifacts {
			a := &result.AddedArtifacts[i]
			fmt.Printf("  [+] %s (%s)\n", artifactKey(a), report.FormatBytes(a.Size))
		}
	}

	if len(result.RemovedArtifacts) > 0 {
		fmt.Printf("\nRemoved Artifacts (%d):\n", len(result.RemovedArtifacts))
		for i := range result.RemovedArtifacts {
			a := &result.RemovedArtifacts[i]
			fmt.Printf("  [-] %s\n", artifactKey(a))
		}
	}

	if len(result.ChangedArtifacts) > 0 {
		fmt.Printf("\nChanged Artifacts (%d):\n", len(result.ChangedArtifacts))
		for _, c := range result.ChangedArtifacts {
			fmt.Printf("  [~] %s (%s, %s -> %s)\n", c.URL,
				report.FormatBytes(c.CurrentSize),
				shortDigestText(c.PreviousSHA256), shortDigestText(c.CurrentSHA256))
		}
	}

	if len(result.NewFindings) > 0 {
		fmt.Printf("\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Printf("  [+] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
			if f.Location != "" {
				fmt.Printf("      Location: %s\n", f.Location)
			}
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Printf("  [-] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
		}
	}

	fmt.Printf("\nUnchanged: %d artifact(s), %d finding(s)\n",
		result.UnchangedArtifacts, result.UnchangedFindings)

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (risk decreased)"
	case riskDirectionWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

// shortDigestText abbreviates a hex digest for display.
func shortDigestText(digest string) string {
	if digest == "" {
		return "-"
	}
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
