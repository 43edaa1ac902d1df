// Package watch keeps the catalog current while an imaging session is
// writing files, by rescanning library roots when their contents
// change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"astrocat/internal/catalog"
	"astrocat/internal/fs"
	"astrocat/internal/model"
)

// DefaultQuietPeriod is how long a root must stay quiet before it is
// rescanned. Capture software writes frames every few seconds, so a
// short window would rescan constantly.
const DefaultQuietPeriod = 2 * time.Second

// Rescanner triggers a scan of the given roots. Satisfied by the
// catalog scanner.
type Rescanner interface {
	ScanAll(ctx context.Context, rootIDs ...string) ([]model.ScanReport, error)
}

// Watcher watches library roots recursively and schedules debounced
// rescans through a Rescanner.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	scanner   Rescanner
	ignore    *fs.IgnoreMatcher
	logger    catalog.Logger

	// rootByPath maps each watched root's absolute path to its root,
	// longest path consulted first.
	roots []*model.LibraryRoot
}

// NewWatcher creates a watcher over the given roots. Every
// non-ignored subdirectory is registered; directories created later
// are picked up from create events.
func NewWatcher(roots []*model.LibraryRoot, scanner Rescanner, ignore *fs.IgnoreMatcher, quiet time.Duration, logger catalog.Logger) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no library roots to watch")
	}
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(quiet),
		scanner:   scanner,
		ignore:    ignore,
		logger:    logger,
		roots:     sortedByPathLen(roots),
	}

	for _, root := range roots {
		if err := w.watchTree(root); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func sortedByPathLen(roots []*model.LibraryRoot) []*model.LibraryRoot {
	sorted := append([]*model.LibraryRoot{}, roots...)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return sorted
}

func (w *Watcher) watchTree(root *model.LibraryRoot) error {
	ignore := w.ignore.ForRoot(root.Path)
	err := filepath.WalkDir(root.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != root.Path {
			rel, relErr := filepath.Rel(root.Path, path)
			if relErr == nil && ignore.MatchDir(rel) {
				return filepath.SkipDir
			}
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", root.Path, err)
	}
	return nil
}

// Run processes filesystem events and rescans dirty roots until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case rootIDs := <-w.debouncer.Output():
			reports, err := w.scanner.ScanAll(ctx, rootIDs...)
			if err != nil {
				w.logger.Error("rescan failed", "error", err)
				continue
			}
			for _, r := range reports {
				if r.Err != nil {
					w.logger.Warn("rescan error", "root", r.RootName, "error", r.Err)
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	root := w.rootFor(event.Name)
	if root == nil {
		return
	}

	// New directories need their own watch; their contents arrive as
	// further events.
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			ignore := w.ignore.ForRoot(root.Path)
			rel, relErr := filepath.Rel(root.Path, event.Name)
			if relErr == nil && !ignore.MatchDir(rel) {
				if err := w.fsWatcher.Add(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			w.debouncer.Add(root.ID)
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	// Only image candidates matter; capture software also writes
	// logs and preview JPEGs.
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		if !fs.IsCandidate(filepath.Base(event.Name)) {
			return
		}
	}

	w.debouncer.Add(root.ID)
}

// rootFor finds the root containing path. Roots are ordered longest
// path first so nested roots resolve to the innermost one.
func (w *Watcher) rootFor(path string) *model.LibraryRoot {
	for _, root := range w.roots {
		if path == root.Path || strings.HasPrefix(path, root.Path+string(filepath.Separator)) {
			return root
		}
	}
	return nil
}
