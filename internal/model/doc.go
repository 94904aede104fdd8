// Package model defines the core data structures used throughout torcollect.
//
// This package contains the following main types:
//   - Artifact: Provenance metadata for a single fetched resource
//   - Collection: The aggregate result of a collection run
//   - Finding: An observation about a collected artifact (e.g. EXIF metadata)
//   - Severity: Risk classification for findings
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (pipeline, inspect, report, ledger) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
