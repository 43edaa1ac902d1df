package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreMatcher_MatchFile(t *testing.T) {
	m := NewIgnoreMatcher("*_bad.fits|test_*", "")

	cases := []struct {
		relPath string
		want    bool
	}{
		{"m31_bad.fits", true},
		{"M31_BAD.FITS", true}, // case-insensitive
		{"sub/dir/m31_bad.fits", true},
		{"test_frame.fit", true},
		{"m31_light.fits", false},
		{".afcignore", true}, // the ignore file itself is never cataloged
	}
	for _, tc := range cases {
		if got := m.MatchFile(tc.relPath); got != tc.want {
			t.Errorf("MatchFile(%q) = %v, want %v", tc.relPath, got, tc.want)
		}
	}
}

func TestIgnoreMatcher_MatchDir(t *testing.T) {
	m := NewIgnoreMatcher("", "rejected|.Trash*")

	cases := []struct {
		relPath string
		want    bool
	}{
		{"rejected", true},
		{"2025-03/REJECTED", true},
		{".Trash-1000", true},
		{"lights", false},
	}
	for _, tc := range cases {
		if got := m.MatchDir(tc.relPath); got != tc.want {
			t.Errorf("MatchDir(%q) = %v, want %v", tc.relPath, got, tc.want)
		}
	}
}

func TestIgnoreMatcher_BlankPatterns(t *testing.T) {
	m := NewIgnoreMatcher("", "")
	if m.MatchFile("anything.fits") {
		t.Error("empty pattern set should match nothing")
	}
	if m.MatchDir("anything") {
		t.Error("empty pattern set should match nothing")
	}
}

func TestIgnoreMatcher_ForRoot(t *testing.T) {
	root := t.TempDir()
	ignoreFile := filepath.Join(root, IgnoreFileName)
	if err := os.WriteFile(ignoreFile, []byte("drafts/\n*.tmp.fits\n"), 0644); err != nil {
		t.Fatalf("writing ignore file: %v", err)
	}

	m := NewIgnoreMatcher("", "").ForRoot(root)

	if !m.MatchDir("drafts") {
		t.Error("expected drafts/ to be ignored via .afcignore")
	}
	if !m.MatchFile("sub/stack.tmp.fits") {
		t.Error("expected *.tmp.fits to be ignored via .afcignore")
	}
	if m.MatchFile("sub/stack.fits") {
		t.Error("unlisted file should not be ignored")
	}

	// A root without an ignore file keeps only the configured patterns.
	plain := NewIgnoreMatcher("", "").ForRoot(t.TempDir())
	if plain.MatchFile("sub/stack.tmp.fits") {
		t.Error("matcher without .afcignore should not ignore")
	}
}
