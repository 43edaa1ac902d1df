package catalog

import (
	"time"

	"astrocat/internal/model"
)

// Store provides persistent access to library roots and catalog
// entries. Implementations must make InsertFile and UpdateFile
// row-atomic: concurrent readers see either the old or the new state
// of a row, never a partially written metadata bag.
type Store interface {
	// Library root operations

	// CreateLibraryRoot registers a new root. Name and path must be
	// unique across the catalog.
	CreateLibraryRoot(root *model.LibraryRoot) error

	// FindLibraryRootByName returns the root with the given display
	// name, or nil if none exists.
	FindLibraryRootByName(name string) (*model.LibraryRoot, error)

	// FindLibraryRootByID returns the root with the given ID, or nil.
	FindLibraryRootByID(id string) (*model.LibraryRoot, error)

	// ListLibraryRoots returns all roots ordered by name.
	ListLibraryRoots() ([]*model.LibraryRoot, error)

	// DeleteLibraryRoot removes a root and, through the foreign key,
	// every file cataloged under it.
	DeleteLibraryRoot(id string) error

	// File operations

	// FindFileByPath returns the entry for (rootID, relPath), or nil.
	FindFileByPath(rootID, relPath string) (*model.File, error)

	// FindFileByID returns the entry with the given ID, or nil.
	FindFileByID(id string) (*model.File, error)

	// InsertFile creates a new catalog entry.
	InsertFile(f *model.File) error

	// UpdateFile overwrites an entry's fingerprint, flags and
	// metadata bag in a single transaction.
	UpdateFile(f *model.File) error

	// ListFileStubs returns the identity and flags of every entry
	// under a root; the scanner's missing-file sweep diffs this
	// against the set of visited paths.
	ListFileStubs(rootID string) ([]FileStub, error)

	// MarkFilesMissing sets missing=true on the given entries.
	MarkFilesMissing(ids []string) error

	// FindFilesByType returns all entries with actual frame type,
	// including ones currently marked missing (offline media stays
	// matchable).
	FindFilesByType(ft model.FrameType) ([]*model.File, error)

	// Search returns entries matching the criteria, ordered by root
	// and relative path.
	Search(c SearchCriteria) ([]*model.File, error)

	// Header cache operations

	// SaveHeader stores the raw header text for a file, replacing any
	// previous text.
	SaveHeader(fileID, raw string) error

	// HeaderText returns the cached raw header for a file, or "" if
	// none is cached.
	HeaderText(fileID string) (string, error)

	// WalkHeaders invokes fn for every cached header. Used to rebuild
	// the header search index.
	WalkHeaders(fn func(fileID, relPath, raw string) error) error

	// Close releases the underlying storage.
	Close() error
}

// FileStub is the minimal row projection used by the missing-file
// sweep.
type FileStub struct {
	ID      string
	RelPath string
	Missing bool
}

// SearchCriteria selects catalog entries for browsing and export.
// Nil/empty fields are not applied. String fields other than
// FileName, Object and Telescope must match exactly; those three
// match as case-insensitive substrings.
type SearchCriteria struct {
	RootID         string           `json:"root_id,omitempty"`
	RootName       string           `json:"root_name,omitempty"`
	FrameType      model.FrameType  `json:"frame_type,omitempty"`
	Filter         string           `json:"filter,omitempty"`
	Camera         string           `json:"camera,omitempty"`
	Telescope      string           `json:"telescope,omitempty"`
	Object         string           `json:"object,omitempty"`
	FileName       string           `json:"file_name,omitempty"`
	Exposure       *float64         `json:"exposure,omitempty"`
	Gain           *int64           `json:"gain,omitempty"`
	Binning        *int64           `json:"binning,omitempty"`
	SetTemp        *float64         `json:"set_temp,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	IncludeMissing bool             `json:"include_missing,omitempty"`
	Limit          int              `json:"limit,omitempty"`
}

// IsEmpty reports whether no filter field is set.
func (c SearchCriteria) IsEmpty() bool {
	return c.RootID == "" && c.RootName == "" && c.FrameType == "" && c.Filter == "" &&
		c.Camera == "" && c.Telescope == "" && c.Object == "" &&
		c.FileName == "" && c.Exposure == nil && c.Gain == nil &&
		c.Binning == nil && c.SetTemp == nil &&
		c.StartDate == nil && c.EndDate == nil
}
