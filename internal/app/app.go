package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"astrocat/internal/catalog"
	"astrocat/internal/config"
	"astrocat/internal/database"
	"astrocat/internal/database/migrations"
	"astrocat/internal/export"
	"astrocat/internal/fs"
	"astrocat/internal/headerindex"
	"astrocat/internal/model"
	"astrocat/internal/session"
	"astrocat/internal/watch"
)

// App is the application layer between the CLI and the catalog
// Service. It constructs all dependencies from config, exposes
// high-level operations, and manages resource lifecycles on Close.
type App struct {
	cfg     *config.Config
	store   catalog.Store
	index   *headerindex.Index // nil when no index dir is configured
	ignore  *fs.IgnoreMatcher
	scanner *catalog.Scanner
	service *catalog.Service
	session *session.Session
	logger  catalog.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Scan", "Search"). The
// caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID+"-"+operation)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating catalog store: %w", err)
	}

	if s, ok := store.(*database.SQLiteStore); ok {
		if err := migrations.MigrateUp(s.DB()); err != nil {
			store.Close()
			logFile.Close()
			return nil, fmt.Errorf("migrating catalog schema: %w", err)
		}
	}

	var index *headerindex.Index
	if cfg.Index.Dir != "" {
		index, err = headerindex.Open(cfg.Index.Dir)
		if err != nil {
			store.Close()
			logFile.Close()
			return nil, fmt.Errorf("opening header index: %w", err)
		}
	}

	ignore := fs.NewIgnoreMatcher(cfg.Scan.IgnoreFiles, cfg.Scan.IgnoreDirs)

	var scanIndex catalog.HeaderIndex
	if index != nil {
		scanIndex = index
	}
	scanner := catalog.NewScanner(store, ignore, scanIndex, logger, catalog.RealClock{}, catalog.UUIDGenerator{}, cfg.Scan.Workers)
	matcher := catalog.NewMatcher(store, catalog.MatchConfig{
		ExposureToleranceSeconds: cfg.Match.ExposureToleranceSeconds,
	})
	service := catalog.NewService(store, scanner, matcher, logger, catalog.RealClock{}, catalog.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		store:   store,
		index:   index,
		ignore:  ignore,
		scanner: scanner,
		service: service,
		session: session.Load(cfg.SessionPath),
		logger:  logger,
		logFile: logFile,
	}, nil
}

// AddRoot registers a directory as a library root.
func (a *App) AddRoot(name, path string) (*model.LibraryRoot, error) {
	return a.service.AddRoot(name, path)
}

// ListRoots returns all configured library roots.
func (a *App) ListRoots() ([]*model.LibraryRoot, error) {
	return a.service.ListRoots()
}

// RemoveRoot deletes a library root and its cataloged files.
func (a *App) RemoveRoot(name string) error {
	return a.service.RemoveRoot(name)
}

// Scan reconciles the named roots (or all roots) against the catalog.
func (a *App) Scan(ctx context.Context, names ...string) ([]model.ScanReport, error) {
	return a.service.Scan(ctx, names...)
}

// Search queries the catalog by metadata criteria and remembers the
// criteria in the session.
func (a *App) Search(criteria catalog.SearchCriteria) ([]*model.File, error) {
	files, err := a.service.Search(criteria)
	if err != nil {
		return nil, err
	}
	a.session.RememberSearch(criteria)
	return files, nil
}

// LastSearch returns the criteria of the previous search, or nil.
func (a *App) LastSearch() *catalog.SearchCriteria {
	return a.session.LastSearch
}

// SearchHeaders runs a full-text query over cached header text.
func (a *App) SearchHeaders(query string, limit int) ([]headerindex.Hit, error) {
	if a.index == nil {
		return nil, fmt.Errorf("no header index configured (set index.dir in the config)")
	}
	return a.index.Search(query, limit)
}

// RebuildIndex re-indexes every cached header and returns the number
// of documents indexed.
func (a *App) RebuildIndex() (int, error) {
	if a.index == nil {
		return 0, fmt.Errorf("no header index configured (set index.dir in the config)")
	}
	return a.index.Rebuild(a.store)
}

// Match finds calibration frames of the given type for the given
// light frames. Each looked-up light is recorded as recently viewed.
func (a *App) Match(lightIDs []string, frameType model.FrameType) (map[string][]*model.File, error) {
	matches, err := a.service.Match(lightIDs, frameType)
	if err != nil {
		return nil, err
	}
	for _, id := range lightIDs {
		a.session.Touch(id)
	}
	return matches, nil
}

// ShowFile returns one catalog file with its cached header text and
// records it as recently viewed.
func (a *App) ShowFile(id string) (*model.File, string, error) {
	f, err := a.service.FindFile(id)
	if err != nil {
		return nil, "", err
	}
	raw, err := a.service.HeaderText(f.ID)
	if err != nil {
		return nil, "", err
	}
	a.session.Touch(f.ID)
	return f, raw, nil
}

// Export copies the files matching criteria to the named export
// destination. Missing files are skipped with a warning.
func (a *App) Export(ctx context.Context, destName string, criteria catalog.SearchCriteria, opts export.Options) (export.Report, error) {
	var destCfg *config.ExportConfig
	for i := range a.cfg.Export {
		if a.cfg.Export[i].Name == destName {
			destCfg = &a.cfg.Export[i]
			break
		}
	}
	if destCfg == nil {
		return export.Report{}, fmt.Errorf("unknown export destination: %s", destName)
	}

	dest, err := export.NewDestinationFromConfig(ctx, *destCfg)
	if err != nil {
		return export.Report{}, fmt.Errorf("creating export destination: %w", err)
	}

	files, err := a.service.Search(criteria)
	if err != nil {
		return export.Report{}, err
	}

	roots, err := a.rootsByID()
	if err != nil {
		return export.Report{}, err
	}

	items := make([]export.Item, 0, len(files))
	for _, f := range files {
		root, ok := roots[f.RootID]
		if !ok || f.Missing {
			a.logger.Warn("skipping unavailable file", "path", f.RelPath)
			continue
		}
		items = append(items, export.Item{
			File:    f,
			AbsPath: filepath.Join(root.Path, filepath.FromSlash(f.RelPath)),
		})
	}

	exporter := export.NewExporter(dest, a.logger)
	return exporter.Export(ctx, items, opts)
}

// Watch rescans library roots as their contents change on disk, until
// the context is cancelled.
func (a *App) Watch(ctx context.Context, names ...string) error {
	var roots []*model.LibraryRoot
	if len(names) == 0 {
		all, err := a.service.ListRoots()
		if err != nil {
			return err
		}
		roots = all
	} else {
		for _, name := range names {
			root, err := a.store.FindLibraryRootByName(name)
			if err != nil {
				return fmt.Errorf("looking up library root %s: %w", name, err)
			}
			if root == nil {
				return fmt.Errorf("unknown library root: %s", name)
			}
			roots = append(roots, root)
		}
	}

	w, err := watch.NewWatcher(roots, a.scanner, a.ignore, watch.DefaultQuietPeriod, a.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (a *App) rootsByID() (map[string]*model.LibraryRoot, error) {
	roots, err := a.service.ListRoots()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.LibraryRoot, len(roots))
	for _, root := range roots {
		byID[root.ID] = root
	}
	return byID, nil
}

// Close persists the session and releases all resources.
func (a *App) Close() error {
	var firstErr error

	if err := a.session.Save(a.cfg.SessionPath); err != nil {
		firstErr = err
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing header index: %w", err)
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing catalog store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
