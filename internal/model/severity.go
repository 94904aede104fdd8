package model

// Severity represents the risk level of a finding attached to collected
// material. It categorizes how strongly a finding could undermine the
// operational privacy of the analyst or the provenance of the artifact.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct impact.
	// Examples: off-site redirects, throttling encountered during a fetch.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited impact.
	// Examples: software names or timestamps embedded in image metadata.
	SeverityLow

	// SeverityMedium indicates moderate issues that warrant attention.
	// Examples: camera identification data, TLS verification disabled for
	// a fetch.
	SeverityMedium

	// SeverityHigh indicates serious issues.
	// Examples: device serial numbers or author identity in image metadata.
	SeverityHigh

	// SeverityCritical indicates findings that likely identify a person or
	// place outright. Example: GPS coordinates embedded in a collected image.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
// This centralized mapping ensures consistent risk assessment across the
// application.
//
// Design decision: We use a map rather than embedding severity in each
// finding type because:
//  1. It allows updating risk assessments without modifying type definitions
//  2. It provides a single source of truth for risk levels
//  3. It makes it easy to generate severity documentation
var findingInfoMapping = map[string]FindingInfo{
	"exif_gps": {
		Severity:       SeverityCritical,
		Impact:         "A collected image embeds GPS coordinates that reveal where it was taken.",
		Recommendation: "Strip EXIF metadata before sharing the artifact outside the analysis environment.",
	},
	"exif_serial": {
		Severity:       SeverityHigh,
		Impact:         "A collected image embeds a device serial number, a unique identifier that links photos to one device.",
		Recommendation: "Strip EXIF metadata and treat the artifact as identifying material.",
	},
	"exif_author": {
		Severity:       SeverityHigh,
		Impact:         "A collected image embeds author or copyright identity information.",
		Recommendation: "Handle the artifact as personally identifying; strip metadata before redistribution.",
	},
	"exif_camera": {
		Severity:       SeverityMedium,
		Impact:         "A collected image embeds camera make/model information useful for device correlation.",
		Recommendation: "Strip EXIF metadata before sharing the artifact.",
	},
	"exif_computer": {
		Severity:       SeverityMedium,
		Impact:         "A collected image embeds the name of the computer that processed it.",
		Recommendation: "Strip EXIF metadata before sharing the artifact.",
	},
	"exif_software": {
		Severity:       SeverityLow,
		Impact:         "A collected image embeds editing software information.",
		Recommendation: "Strip EXIF metadata if the toolchain should stay private.",
	},
	"exif_datetime": {
		Severity:       SeverityLow,
		Impact:         "A collected image embeds original timestamps that can reveal timezone and activity patterns.",
		Recommendation: "Strip EXIF metadata if capture times are sensitive.",
	},
	"insecure_transport": {
		Severity:       SeverityMedium,
		Impact:         "The fetch ran with TLS certificate verification disabled, so the artifact's origin is unauthenticated.",
		Recommendation: "Re-fetch with verification enabled before relying on the artifact's provenance.",
	},
	"offsite_redirect": {
		Severity:       SeverityInfo,
		Impact:         "The server redirected the fetch to a different host; the artifact did not come from the requested origin.",
		Recommendation: "Record the final host alongside the requested URL in any citation of this artifact.",
	},
	"throttled_fetch": {
		Severity:       SeverityInfo,
		Impact:         "The server rate-limited the fetch; the artifact was retrieved after a server-imposed delay.",
		Recommendation: "Increase the configured wait between requests for this host.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in
// the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}
