package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileName is an optional per-root ignore file in gitignore
// syntax, layered on top of the configured patterns.
const IgnoreFileName = ".afcignore"

// IgnoreMatcher excludes files and directories from scanning. Two
// sources are combined: pipe-separated glob patterns from the
// configuration (matched case-insensitively against file names and
// against every path segment independently) and the root's optional
// .afcignore file.
type IgnoreMatcher struct {
	filePatterns []string
	dirPatterns  []string
	rootIgnore   gitignore.GitIgnore
}

// NewIgnoreMatcher parses the configured pattern strings. Patterns are
// separated by '|'; blank patterns are skipped.
func NewIgnoreMatcher(filePatterns, dirPatterns string) *IgnoreMatcher {
	return &IgnoreMatcher{
		filePatterns: splitPatterns(filePatterns),
		dirPatterns:  splitPatterns(dirPatterns),
	}
}

// ForRoot returns a copy of the matcher that additionally honors the
// root's .afcignore file, if one exists. A missing or unreadable
// ignore file is not an error.
func (m *IgnoreMatcher) ForRoot(rootPath string) *IgnoreMatcher {
	out := &IgnoreMatcher{
		filePatterns: m.filePatterns,
		dirPatterns:  m.dirPatterns,
	}
	f, err := os.Open(filepath.Join(rootPath, IgnoreFileName))
	if err != nil {
		return out
	}
	defer f.Close()
	out.rootIgnore = gitignore.New(f, rootPath, nil)
	return out
}

// MatchFile reports whether a file with the given name and
// root-relative path should be skipped.
func (m *IgnoreMatcher) MatchFile(relPath string) bool {
	name := strings.ToLower(filepath.Base(relPath))
	if name == IgnoreFileName {
		return true
	}
	for _, p := range m.filePatterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return m.matchRootIgnore(relPath, false)
}

// MatchDir reports whether a directory with the given name and
// root-relative path should be skipped entirely.
func (m *IgnoreMatcher) MatchDir(relPath string) bool {
	name := strings.ToLower(filepath.Base(relPath))
	for _, p := range m.dirPatterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return m.matchRootIgnore(relPath, true)
}

func (m *IgnoreMatcher) matchRootIgnore(relPath string, isDir bool) bool {
	if m.rootIgnore == nil {
		return false
	}
	match := m.rootIgnore.Relative(filepath.ToSlash(relPath), isDir)
	return match != nil && match.Ignore()
}

func splitPatterns(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, "|") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
