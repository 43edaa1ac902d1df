package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"astrocat/internal/model"
)

// Entry is one candidate file found under a library root.
type Entry struct {
	RelPath     string // forward slashes, relative to the root
	AbsPath     string
	Size        int64
	MtimeMillis int64
	Compression model.Compression
}

// compressedExts maps outer compression extensions to their kind.
var compressedExts = map[string]model.Compression{
	".gz":  model.CompressionGzip,
	".bz2": model.CompressionBzip2,
	".xz":  model.CompressionXz,
}

// CompressionByName returns the compression kind implied by the file
// name's outermost extension.
func CompressionByName(name string) model.Compression {
	if kind, ok := compressedExts[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return model.CompressionNone
}

// IsCandidate reports whether the file name looks like a container the
// extractor understands: .fit/.fits (optionally compressed) or .xisf.
// Externally compressed XISF is not supported, matching the reader.
func IsCandidate(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := compressedExts[filepath.Ext(lower)]; ok {
		lower = strings.TrimSuffix(lower, filepath.Ext(lower))
	}
	return strings.HasSuffix(lower, ".fit") ||
		strings.HasSuffix(lower, ".fits") ||
		strings.HasSuffix(strings.ToLower(name), ".xisf")
}

// WalkRoot enumerates candidate files under root, applying the ignore
// matcher to directories (pruning whole subtrees) and file names.
// Symbolic links to files are followed once via Stat; symlinked
// directories are not traversed, so link cycles cannot occur. onSkip
// is invoked for candidate files excluded by ignore patterns.
func WalkRoot(root string, ignore *IgnoreMatcher, onSkip func(relPath string), fn func(Entry) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("accessing root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root is not a directory: %s", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("reading root %s: %w", root, err)
			}
			// Unreadable subtree: skip it, the scan continues.
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && ignore.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		finfo, serr := resolveEntry(path, d)
		if serr != nil || finfo == nil {
			return nil
		}

		if !IsCandidate(d.Name()) {
			return nil
		}
		if ignore.MatchFile(rel) {
			if onSkip != nil {
				onSkip(rel)
			}
			return nil
		}

		return fn(Entry{
			RelPath:     rel,
			AbsPath:     path,
			Size:        finfo.Size(),
			MtimeMillis: finfo.ModTime().UnixMilli(),
			Compression: CompressionByName(d.Name()),
		})
	})
}

// resolveEntry returns file info for regular files, following a
// symlink one step. Anything else (devices, sockets, symlinked
// directories) yields nil.
func resolveEntry(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type().IsRegular() {
		return d.Info()
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return info, nil
}
