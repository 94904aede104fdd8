package model

import "time"

// Finding is an observation about collected material: metadata embedded in
// an artifact, or a noteworthy condition encountered while fetching it.
type Finding struct {
	// Type is the finding type identifier.
	// This maps to the findingInfoMapping in severity.go.
	Type string `json:"type"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the specific value found (tag contents, host name, etc.).
	Value string `json:"value,omitempty"`

	// Location is where the finding was discovered (file path or URL).
	Location string `json:"location,omitempty"`
}

// NewFinding builds a Finding of the given type, filling severity and
// recommendation from the central mapping.
func NewFinding(findingType, title, description, value, location string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	}
}

// Collection is the aggregate result of one collection run: every artifact
// fetched, every finding raised, and every non-fatal error encountered.
//
// Design decision: We use a single flat struct rather than per-step result
// types to simplify serialization, reporting, and ledger storage. Steps
// append to it as they run; it is not safe for concurrent mutation and the
// batch layer serializes access.
type Collection struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed (zero while running).
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// OutputDir is where artifacts were written.
	OutputDir string `json:"output_dir,omitempty"`

	// Artifacts lists every fetched resource in completion order.
	Artifacts []Artifact `json:"artifacts"`

	// Findings lists observations about the artifacts.
	Findings []Finding `json:"findings,omitempty"`

	// Errors records non-fatal errors (e.g. one URL of a batch failing).
	Errors []string `json:"errors,omitempty"`

	// PerformedSteps names the workflow steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Interrupted is true when the run was cancelled before finishing.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewCollection creates a Collection stamped with the current time.
func NewCollection(outputDir string) *Collection {
	return &Collection{
		StartedAt: time.Now(),
		OutputDir: outputDir,
		Artifacts: make([]Artifact, 0),
		Findings:  make([]Finding, 0),
	}
}

// AddArtifact appends an artifact to the collection.
func (c *Collection) AddArtifact(a Artifact) {
	c.Artifacts = append(c.Artifacts, a)
}

// AddFinding appends a finding to the collection.
func (c *Collection) AddFinding(f Finding) {
	c.Findings = append(c.Findings, f)
}

// RecordError appends a non-fatal error message to the collection.
func (c *Collection) RecordError(msg string) {
	c.Errors = append(c.Errors, msg)
}

// Finish stamps the completion time.
func (c *Collection) Finish() {
	c.FinishedAt = time.Now()
}

// TotalBytes returns the sum of all artifact sizes.
func (c *Collection) TotalBytes() int64 {
	var total int64
	for i := range c.Artifacts {
		total += c.Artifacts[i].Size
	}
	return total
}

// TotalFindings returns the number of findings.
func (c *Collection) TotalFindings() int {
	return len(c.Findings)
}

// HasFindings reports whether any findings were raised.
func (c *Collection) HasFindings() bool {
	return len(c.Findings) > 0
}

// CountBySeverity returns the number of findings at the given severity.
func (c *Collection) CountBySeverity(sev Severity) int {
	count := 0
	for i := range c.Findings {
		if c.Findings[i].Severity == sev {
			count++
		}
	}
	return count
}

// FindingsBySeverity returns the findings at the given severity, in order.
func (c *Collection) FindingsBySeverity(sev Severity) []Finding {
	out := make([]Finding, 0)
	for i := range c.Findings {
		if c.Findings[i].Severity == sev {
			out = append(out, c.Findings[i])
		}
	}
	return out
}
