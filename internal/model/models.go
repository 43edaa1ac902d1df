package model

import (
	"strings"
	"time"
)

// FrameType classifies a catalog entry by its capture purpose.
type FrameType string

const (
	FrameLight   FrameType = "LIGHT"
	FrameDark    FrameType = "DARK"
	FrameFlat    FrameType = "FLAT"
	FrameBias    FrameType = "BIAS"
	FrameUnknown FrameType = "UNKNOWN"
)

// NormalizeFrameType maps a raw header value (e.g. "Light Frame", "dark")
// onto the enumerated frame types. Unrecognized values map to FrameUnknown.
func NormalizeFrameType(raw string) FrameType {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimSuffix(v, " FRAME")
	switch v {
	case "LIGHT":
		return FrameLight
	case "DARK":
		return FrameDark
	case "FLAT", "FLAT FIELD", "FLATFIELD":
		return FrameFlat
	case "BIAS", "ZERO":
		return FrameBias
	default:
		return FrameUnknown
	}
}

// Compression identifies the outer compression container of a file,
// orthogonal to the image format inside it.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionXz    Compression = "xz"
)

// LibraryRoot is a user-configured directory whose contents are cataloged.
type LibraryRoot struct {
	ID        string // UUID
	Name      string // Display label, unique
	Path      string // Absolute path on host, unique
	CreatedAt time.Time
}

// Metadata is the normalized capture metadata extracted from a file's header.
// Nil pointer fields mean the header did not carry the value; comparisons in
// the calibration matcher never treat an absent value as equal to anything.
type Metadata struct {
	FrameType FrameType
	Exposure  *float64 // seconds
	Gain      *int64
	Binning   *int64
	SetTemp   *float64 // requested sensor temperature, Celsius
	CCDTemp   *float64 // reported sensor temperature, Celsius
	Filter    *string
	Camera    *string
	Telescope *string
	Object    *string
	RA        *float64 // degrees
	Dec       *float64 // degrees
	DateObs   *time.Time
}

// File is a catalog entry for a single file under a library root.
type File struct {
	ID          string // UUID
	RootID      string // Foreign key to LibraryRoot
	RelPath     string // Path relative to the root, forward slashes
	Size        int64
	MtimeMillis int64
	Compression Compression

	// Missing is set when a scan of the owning root no longer finds the
	// file on disk. Rows are never deleted automatically so entries on
	// offline or removable media stay searchable.
	Missing bool

	// ExtractFailed marks a placeholder entry whose header could not be
	// parsed. It is re-extracted only when the fingerprint changes.
	ExtractFailed bool

	Metadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fingerprint is the cheap change detector: size plus modification time.
type Fingerprint struct {
	Size        int64
	MtimeMillis int64
}

// Fingerprint returns the file's stored fingerprint.
func (f *File) Fingerprint() Fingerprint {
	return Fingerprint{Size: f.Size, MtimeMillis: f.MtimeMillis}
}

// ScanReport summarizes the outcome of scanning a single library root.
type ScanReport struct {
	RootID   string
	RootName string

	Added     int // new files inserted
	Updated   int // fingerprint changed, metadata re-extracted
	Unchanged int // fingerprint matched, left untouched
	Missing   int // newly marked missing in this pass
	Failed    int // extraction failures recorded as placeholders
	Skipped   int // candidate files excluded by ignore patterns

	// Cancelled is set when the scan stopped early on context
	// cancellation. A cancelled scan skips the missing-file sweep so
	// unvisited files are not falsely marked missing.
	Cancelled bool

	// Err is set when the root itself could not be scanned (e.g. an
	// unmounted drive). Other roots are unaffected.
	Err error
}
