package inspect

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/decisym/torcollect/internal/model"
)

// DefaultMaxFileSize bounds how large a file the inspector will load (5MB).
const DefaultMaxFileSize = 5 * 1024 * 1024

// supportedPattern matches file extensions that can carry EXIF metadata:
// JPEG and TIFF natively, PNG and WebP through dedicated chunks.
var supportedPattern = regexp.MustCompile(`(?i)\.(jpe?g|tiff?|png|webp)$`)

// Supported reports whether the file name has an extension worth
// inspecting for EXIF metadata.
func Supported(path string) bool {
	return supportedPattern.MatchString(path)
}

// Inspector scans collected files for identifying EXIF metadata.
//
// The inspector checks for:
//   - GPS coordinates (location disclosure)
//   - Camera make/model/serial (device identification)
//   - Software information (editing software, OS)
//   - Timestamps (timezone inference)
//   - Author/copyright information (identity disclosure)
type Inspector struct {
	// maxFileSize limits how large a file is loaded for inspection.
	maxFileSize int64

	logger *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithMaxFileSize overrides the per-file size cap.
func WithMaxFileSize(n int64) Option {
	return func(ins *Inspector) {
		if n > 0 {
			ins.maxFileSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ins *Inspector) {
		ins.logger = logger
	}
}

// NewInspector creates an Inspector with the default size cap.
func NewInspector(opts ...Option) *Inspector {
	ins := &Inspector{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(ins)
	}

	if ins.logger == nil {
		ins.logger = slog.Default()
	}

	return ins
}

// InspectFile scans one local file. Files with unsupported extensions and
// files over the size cap are skipped without error.
func (ins *Inspector) InspectFile(path string) ([]model.Finding, error) {
	if !Supported(path) {
		ins.logger.Debug("skipping file without inspectable extension", "path", path)
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > ins.maxFileSize {
		ins.logger.Debug("skipping oversized file", "path", path, "size", info.Size())
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // Inspecting caller-chosen local files is the point
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ins.InspectBytes(data, path), nil
}

// InspectBytes scans raw image bytes. The location labels findings, usually
// the file path or source URL of the bytes.
func (ins *Inspector) InspectBytes(data []byte, location string) []model.Finding {
	findings := make([]model.Finding, 0)

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if !errors.Is(err, exif.ErrNoExif) {
			ins.logger.Debug("exif extraction failed", "location", location, "error", err)
		}
		return findings
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		ins.logger.Debug("exif parse failed", "location", location, "error", err)
		return findings
	}

	for _, entry := range entries {
		if finding, ok := findingForTag(entry.TagName, entry.Formatted, location); ok {
			findings = append(findings, finding)
		}
	}

	return findings
}

// findingForTag maps one EXIF tag to a finding. Tags outside the mapped
// groups are not reported.
func findingForTag(tagName, value, location string) (model.Finding, bool) {
	entry := tagName + ": " + value

	switch tagName {
	case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef":
		return model.NewFinding("exif_gps",
			"GPS Coordinates in Image EXIF",
			"A collected image contains GPS coordinates in its EXIF metadata. This reveals the location where the image was taken.",
			entry, location), true

	case "Make", "Model":
		return model.NewFinding("exif_camera",
			"Camera Information in Image EXIF",
			"A collected image contains camera make/model information. This can help identify the device used.",
			entry, location), true

	case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
		return model.NewFinding("exif_serial",
			"Device Serial Number in Image EXIF",
			"A collected image contains a device serial number. This is a unique identifier that can track the device across photos.",
			entry, location), true

	case "Software", "ProcessingSoftware":
		return model.NewFinding("exif_software",
			"Software Information in Image EXIF",
			"A collected image contains software information that reveals editing tools or operating system used.",
			entry, location), true

	case "Artist", "Author", "Copyright", "XPAuthor":
		return model.NewFinding("exif_author",
			"Author/Copyright Information in Image EXIF",
			"A collected image contains author or copyright information that could identify the creator.",
			entry, location), true

	case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
		return model.NewFinding("exif_datetime",
			"Timestamp in Image EXIF",
			"A collected image contains timestamp information. Combined with other data, this can help determine timezone and activity patterns.",
			entry, location), true

	case "HostComputer":
		return model.NewFinding("exif_computer",
			"Host Computer in Image EXIF",
			"A collected image contains the name of the computer used to process it.",
			entry, location), true
	}

	return model.Finding{}, false
}
