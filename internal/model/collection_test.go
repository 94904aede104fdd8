package model

import (
	"testing"
	"time"
)

// TestNewCollection tests collection construction.
func TestNewCollection(t *testing.T) {
	t.Parallel()

	before := time.Now()
	c := NewCollection("/tmp/out")
	after := time.Now()

	if c.OutputDir != "/tmp/out" {
		t.Errorf("expected output dir /tmp/out, got %q", c.OutputDir)
	}
	if c.StartedAt.Before(before) || c.StartedAt.After(after) {
		t.Error("StartedAt not stamped with current time")
	}
	if len(c.Artifacts) != 0 || len(c.Findings) != 0 {
		t.Error("expected empty artifact and finding lists")
	}
	if !c.FinishedAt.IsZero() {
		t.Error("FinishedAt should be zero until Finish is called")
	}
}

// TestCollectionAccumulation tests artifact/finding/error accumulation.
func TestCollectionAccumulation(t *testing.T) {
	t.Parallel()

	c := NewCollection("")
	c.AddArtifact(Artifact{URL: "https://a.example/x", Size: 100})
	c.AddArtifact(Artifact{URL: "https://a.example/y", Size: 250})
	c.AddFinding(NewFinding("exif_gps", "GPS", "", "", ""))
	c.AddFinding(NewFinding("exif_software", "Software", "", "", ""))
	c.AddFinding(NewFinding("offsite_redirect", "Redirect", "", "", ""))
	c.RecordError("fetch https://a.example/z: boom")
	c.Finish()

	if got := c.TotalBytes(); got != 350 {
		t.Errorf("TotalBytes = %d, expected 350", got)
	}
	if got := c.TotalFindings(); got != 3 {
		t.Errorf("TotalFindings = %d, expected 3", got)
	}
	if !c.HasFindings() {
		t.Error("expected HasFindings to be true")
	}
	if got := c.CountBySeverity(SeverityCritical); got != 1 {
		t.Errorf("CountBySeverity(critical) = %d, expected 1", got)
	}
	if got := len(c.FindingsBySeverity(SeverityInfo)); got != 1 {
		t.Errorf("FindingsBySeverity(info) returned %d findings, expected 1", got)
	}
	if len(c.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(c.Errors))
	}
	if c.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be stamped")
	}
}

// TestArtifactRedirected tests redirect detection on artifacts.
func TestArtifactRedirected(t *testing.T) {
	t.Parallel()

	t.Run("no redirect", func(t *testing.T) {
		t.Parallel()
		a := Artifact{URL: "https://a.example/x", FinalURL: "https://a.example/x"}
		if a.Redirected() {
			t.Error("expected Redirected to be false")
		}
	})

	t.Run("redirected", func(t *testing.T) {
		t.Parallel()
		a := Artifact{URL: "https://a.example/x", FinalURL: "https://b.example/y"}
		if !a.Redirected() {
			t.Error("expected Redirected to be true")
		}
	})
}

// TestDigest tests the shared body digest helper.
func TestDigest(t *testing.T) {
	t.Parallel()

	// SHA-256 of "hello" is well known.
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Digest([]byte("hello")); got != want {
		t.Errorf("Digest(hello) = %s, expected %s", got, want)
	}
	if got := Digest(nil); len(got) != 64 {
		t.Errorf("Digest(nil) length = %d, expected 64 hex chars", len(got))
	}
}
