package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"astrocat/internal/model"
)

// Service is the orchestration layer that coordinates scanning,
// searching, and calibration matching on behalf of the CLI.
type Service struct {
	store   Store
	scanner *Scanner
	matcher *Matcher
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, scanner *Scanner, matcher *Matcher, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:   store,
		scanner: scanner,
		matcher: matcher,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// AddRoot registers a directory as a library root. The name must be
// unique and the path must point to an existing directory.
func (s *Service) AddRoot(name, path string) (*model.LibraryRoot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &AccessError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", abs)
	}

	existing, err := s.store.FindLibraryRootByName(name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing root: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("library root already exists: %s", name)
	}

	now := s.clock.Now()
	root := &model.LibraryRoot{
		ID:        s.idgen.New(),
		Name:      name,
		Path:      abs,
		CreatedAt: now,
	}
	if err := s.store.CreateLibraryRoot(root); err != nil {
		return nil, fmt.Errorf("creating library root: %w", err)
	}

	s.logger.Info("library root added", "name", name, "path", abs)
	return root, nil
}

// ListRoots returns all configured library roots.
func (s *Service) ListRoots() ([]*model.LibraryRoot, error) {
	return s.store.ListLibraryRoots()
}

// RemoveRoot deletes a library root and all of its cataloged files.
// The files on disk are untouched.
func (s *Service) RemoveRoot(name string) error {
	root, err := s.store.FindLibraryRootByName(name)
	if err != nil {
		return fmt.Errorf("looking up library root: %w", err)
	}
	if root == nil {
		return fmt.Errorf("unknown library root: %s", name)
	}
	if err := s.store.DeleteLibraryRoot(root.ID); err != nil {
		return fmt.Errorf("deleting library root: %w", err)
	}
	s.logger.Info("library root removed", "name", name)
	return nil
}

// Scan reconciles the named roots against the catalog, or every root
// when no names are given.
func (s *Service) Scan(ctx context.Context, names ...string) ([]model.ScanReport, error) {
	var ids []string
	for _, name := range names {
		root, err := s.store.FindLibraryRootByName(name)
		if err != nil {
			return nil, fmt.Errorf("looking up library root %s: %w", name, err)
		}
		if root == nil {
			return nil, fmt.Errorf("unknown library root: %s", name)
		}
		ids = append(ids, root.ID)
	}
	return s.scanner.ScanAll(ctx, ids...)
}

// Search queries the catalog by metadata criteria. A RootName
// constraint is resolved to the root's ID before querying.
func (s *Service) Search(criteria SearchCriteria) ([]*model.File, error) {
	if criteria.RootName != "" && criteria.RootID == "" {
		root, err := s.store.FindLibraryRootByName(criteria.RootName)
		if err != nil {
			return nil, fmt.Errorf("looking up library root %s: %w", criteria.RootName, err)
		}
		if root == nil {
			return nil, fmt.Errorf("unknown library root: %s", criteria.RootName)
		}
		criteria.RootID = root.ID
	}
	return s.store.Search(criteria)
}

// FindFile resolves a catalog file by ID.
func (s *Service) FindFile(id string) (*model.File, error) {
	f, err := s.store.FindFileByID(id)
	if err != nil {
		return nil, fmt.Errorf("looking up file %s: %w", id, err)
	}
	if f == nil {
		return nil, fmt.Errorf("unknown file: %s", id)
	}
	return f, nil
}

// Match finds calibration frames of the given type for the given
// light frames, identified by file ID.
func (s *Service) Match(lightIDs []string, frameType model.FrameType) (map[string][]*model.File, error) {
	lights := make([]*model.File, 0, len(lightIDs))
	for _, id := range lightIDs {
		f, err := s.FindFile(id)
		if err != nil {
			return nil, err
		}
		lights = append(lights, f)
	}
	return s.matcher.FindMatches(lights, frameType)
}

// HeaderText returns the cached raw header for a file, or empty when
// none was stored.
func (s *Service) HeaderText(fileID string) (string, error) {
	return s.store.HeaderText(fileID)
}
