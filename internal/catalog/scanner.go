package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"astrocat/internal/fs"
	"astrocat/internal/header"
	"astrocat/internal/model"
)

// HeaderIndex receives raw header text for full-text search. The
// scanner tolerates index failures: a file that cannot be indexed is
// still cataloged.
type HeaderIndex interface {
	IndexHeader(fileID, relPath, raw string) error
	Remove(fileID string) error
}

// Scanner reconciles the filesystem view of library roots against the
// catalog store: new files are extracted and inserted, changed files
// re-extracted, unchanged files left untouched, and files that
// disappeared are marked missing.
type Scanner struct {
	store   Store
	ignore  *fs.IgnoreMatcher
	index   HeaderIndex // may be nil
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	workers int
}

// NewScanner creates a Scanner. workers bounds the extraction pool;
// values below 1 are treated as 1. index may be nil to disable header
// indexing.
func NewScanner(store Store, ignore *fs.IgnoreMatcher, index HeaderIndex, logger Logger, clock Clock, idgen IDGenerator, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		store:   store,
		ignore:  ignore,
		index:   index,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		workers: workers,
	}
}

// ScanAll scans the given roots, or every configured root when none
// are named. Roots scan independently: one inaccessible root is
// reported in its own ScanReport and does not affect the others.
func (s *Scanner) ScanAll(ctx context.Context, rootIDs ...string) ([]model.ScanReport, error) {
	var roots []*model.LibraryRoot
	if len(rootIDs) == 0 {
		all, err := s.store.ListLibraryRoots()
		if err != nil {
			return nil, fmt.Errorf("listing library roots: %w", err)
		}
		roots = all
	} else {
		for _, id := range rootIDs {
			root, err := s.store.FindLibraryRootByID(id)
			if err != nil {
				return nil, fmt.Errorf("loading library root %s: %w", id, err)
			}
			if root == nil {
				return nil, fmt.Errorf("unknown library root: %s", id)
			}
			roots = append(roots, root)
		}
	}

	reports := make([]model.ScanReport, 0, len(roots))
	for _, root := range roots {
		report := s.ScanRoot(ctx, root)
		reports = append(reports, report)
		if report.Cancelled {
			break
		}
	}
	return reports, nil
}

// scanJob is one file needing extraction, paired with the existing
// catalog entry when the file changed rather than appeared.
type scanJob struct {
	entry    fs.Entry
	existing *model.File
}

// scanResult carries a finished extraction back to the committing
// goroutine. record is nil when extraction failed.
type scanResult struct {
	job    scanJob
	record *header.Record
	err    error
}

// ScanRoot reconciles a single root. Store failures abort the scan of
// this root at the current file; extraction failures are recorded per
// file and never abort. Cancellation is honored between files and
// skips the missing-file sweep.
func (s *Scanner) ScanRoot(ctx context.Context, root *model.LibraryRoot) model.ScanReport {
	report := model.ScanReport{RootID: root.ID, RootName: root.Name}
	s.logger.Info("scanning library root", "root", root.Name, "path", root.Path)

	ignore := s.ignore.ForRoot(root.Path)

	// Phase 1: enumerate candidates. Enumeration is single-threaded;
	// only extraction is pooled.
	var entries []fs.Entry
	err := fs.WalkRoot(root.Path, ignore, func(string) { report.Skipped++ }, func(e fs.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		report.Cancelled = true
		return report
	default:
		report.Err = &AccessError{Path: root.Path, Err: err}
		s.logger.Warn("library root not scannable", "root", root.Name, "error", err)
		return report
	}

	// Phase 2: diff against the catalog, collecting files that need
	// extraction. Unchanged files are the common case on rescans and
	// never touch their row (rediscovered missing files excepted).
	visited := make(map[string]bool, len(entries))
	var jobs []scanJob
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			return report
		}
		existing, err := s.store.FindFileByPath(root.ID, e.RelPath)
		if err != nil {
			report.Err = fmt.Errorf("looking up %s: %w", e.RelPath, err)
			return report
		}
		visited[e.RelPath] = true

		if existing == nil {
			jobs = append(jobs, scanJob{entry: e})
			continue
		}
		if existing.Size == e.Size && existing.MtimeMillis == e.MtimeMillis {
			report.Unchanged++
			if existing.Missing {
				existing.Missing = false
				existing.UpdatedAt = s.clock.Now()
				if err := s.store.UpdateFile(existing); err != nil {
					report.Err = fmt.Errorf("clearing missing flag on %s: %w", e.RelPath, err)
					return report
				}
			}
			continue
		}
		jobs = append(jobs, scanJob{entry: e, existing: existing})
	}

	if !s.runExtractions(ctx, root, jobs, &report) {
		return report
	}
	if report.Cancelled {
		return report
	}

	// Phase 3: every entry not visited in this pass is gone from
	// disk. Already-missing entries stay missing without comment;
	// removable media is expected to disappear.
	stubs, err := s.store.ListFileStubs(root.ID)
	if err != nil {
		report.Err = fmt.Errorf("listing entries for sweep: %w", err)
		return report
	}
	var gone []string
	for _, stub := range stubs {
		if !visited[stub.RelPath] && !stub.Missing {
			gone = append(gone, stub.ID)
		}
	}
	if len(gone) > 0 {
		if err := s.store.MarkFilesMissing(gone); err != nil {
			report.Err = fmt.Errorf("marking files missing: %w", err)
			return report
		}
		report.Missing = len(gone)
	}

	s.logger.Info("scan complete", "root", root.Name,
		"added", report.Added, "updated", report.Updated,
		"unchanged", report.Unchanged, "missing", report.Missing,
		"failed", report.Failed)
	return report
}

// runExtractions processes extraction jobs on a bounded worker pool
// and commits results serially. Returns false when a store failure
// aborted the scan.
func (s *Scanner) runExtractions(ctx context.Context, root *model.LibraryRoot, jobs []scanJob, report *model.ScanReport) bool {
	if len(jobs) == 0 {
		return true
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan scanJob)
	resultCh := make(chan scanResult)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				// Cancellation is honored between files, never
				// mid-extraction.
				if workCtx.Err() != nil {
					return
				}
				record, err := extractEntry(job.entry)
				select {
				case resultCh <- scanResult{job: job, record: record, err: err}:
				case <-workCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-workCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	aborted := false
	for res := range resultCh {
		if aborted {
			continue // drain
		}
		if err := s.commitResult(root, res, report); err != nil {
			report.Err = err
			aborted = true
			cancel()
		}
	}

	if ctx.Err() != nil && report.Err == nil {
		report.Cancelled = true
	}
	return !aborted
}

// commitResult writes one extraction outcome to the store. Extraction
// failures become placeholder rows (frame type UNKNOWN, metadata
// absent) so the file stays enumerable and is not re-extracted until
// its fingerprint changes.
func (s *Scanner) commitResult(root *model.LibraryRoot, res scanResult, report *model.ScanReport) error {
	now := s.clock.Now()
	e := res.job.entry

	f := res.job.existing
	isNew := f == nil
	if isNew {
		f = &model.File{
			ID:        s.idgen.New(),
			RootID:    root.ID,
			RelPath:   e.RelPath,
			CreatedAt: now,
		}
	}
	f.Size = e.Size
	f.MtimeMillis = e.MtimeMillis
	f.Compression = e.Compression
	f.Missing = false
	f.UpdatedAt = now

	if res.err != nil {
		f.Metadata = model.Metadata{FrameType: model.FrameUnknown}
		f.ExtractFailed = true
		report.Failed++
		s.logger.Warn("extraction failed", "root", root.Name, "path", e.RelPath, "error", res.err)
	} else {
		f.Metadata = res.record.Metadata
		f.ExtractFailed = false
	}

	var err error
	if isNew {
		err = s.store.InsertFile(f)
	} else {
		err = s.store.UpdateFile(f)
	}
	if err != nil {
		return fmt.Errorf("storing %s: %w", e.RelPath, err)
	}

	if res.err == nil {
		if isNew {
			report.Added++
		} else {
			report.Updated++
		}
		if res.record.Raw != "" {
			if err := s.store.SaveHeader(f.ID, res.record.Raw); err != nil {
				return fmt.Errorf("caching header for %s: %w", e.RelPath, err)
			}
			if s.index != nil {
				if err := s.index.IndexHeader(f.ID, f.RelPath, res.record.Raw); err != nil {
					s.logger.Warn("header indexing failed", "path", e.RelPath, "error", err)
				}
			}
		}
	}
	return nil
}

// extractEntry opens the file and extracts its header. Zero-byte
// files are cataloged with all-absent metadata rather than treated as
// extraction failures.
func extractEntry(e fs.Entry) (*header.Record, error) {
	if e.Size == 0 {
		return &header.Record{Metadata: model.Metadata{FrameType: model.FrameUnknown}}, nil
	}

	f, err := os.Open(e.AbsPath)
	if err != nil {
		return nil, &ExtractionError{Path: e.AbsPath, Err: err}
	}
	defer f.Close()

	rec, err := header.Extract(f)
	if err != nil {
		return nil, &ExtractionError{Path: e.AbsPath, Err: err}
	}
	return rec, nil
}
