package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"astrocat/internal/model"
)

func writeFile(t *testing.T, root, relPath string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
}

func collectPaths(t *testing.T, root string, ignore *IgnoreMatcher) ([]string, []string) {
	t.Helper()
	var found, skipped []string
	err := WalkRoot(root, ignore, func(relPath string) {
		skipped = append(skipped, relPath)
	}, func(e Entry) error {
		found = append(found, e.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkRoot failed: %v", err)
	}
	sort.Strings(found)
	sort.Strings(skipped)
	return found, skipped
}

func TestWalkRoot(t *testing.T) {
	t.Run("finds candidate files recursively", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "m31/light_001.fits", []byte("x"))
		writeFile(t, root, "m31/light_002.fit", []byte("x"))
		writeFile(t, root, "m31/light_003.fits.gz", []byte("x"))
		writeFile(t, root, "m31/stack.xisf", []byte("x"))
		writeFile(t, root, "m31/notes.txt", []byte("x"))
		writeFile(t, root, "m31/preview.jpg", []byte("x"))

		found, _ := collectPaths(t, root, NewIgnoreMatcher("", ""))
		want := []string{
			"m31/light_001.fits",
			"m31/light_002.fit",
			"m31/light_003.fits.gz",
			"m31/stack.xisf",
		}
		if len(found) != len(want) {
			t.Fatalf("found %v, want %v", found, want)
		}
		for i := range want {
			if found[i] != want[i] {
				t.Errorf("found[%d] = %s, want %s", i, found[i], want[i])
			}
		}
	})

	t.Run("prunes ignored directories and counts skipped files", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "keep/light.fits", []byte("x"))
		writeFile(t, root, "rejected/bad.fits", []byte("x"))
		writeFile(t, root, "keep/cal_bad.fits", []byte("x"))

		ignore := NewIgnoreMatcher("*_bad.fits", "rejected")
		found, skipped := collectPaths(t, root, ignore)

		if len(found) != 1 || found[0] != "keep/light.fits" {
			t.Errorf("found = %v, want [keep/light.fits]", found)
		}
		if len(skipped) != 1 || skipped[0] != "keep/cal_bad.fits" {
			t.Errorf("skipped = %v, want [keep/cal_bad.fits]", skipped)
		}
	})

	t.Run("reports compression from the file name", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "dark.fits.xz", []byte("x"))

		var entry Entry
		err := WalkRoot(root, NewIgnoreMatcher("", ""), nil, func(e Entry) error {
			entry = e
			return nil
		})
		if err != nil {
			t.Fatalf("WalkRoot failed: %v", err)
		}
		if entry.Compression != model.CompressionXz {
			t.Errorf("compression = %s, want xz", entry.Compression)
		}
	})

	t.Run("fails on a missing root", func(t *testing.T) {
		err := WalkRoot(filepath.Join(t.TempDir(), "gone"), NewIgnoreMatcher("", ""), nil, func(Entry) error {
			return nil
		})
		if err == nil {
			t.Fatal("expected error for missing root")
		}
	})

	t.Run("does not traverse symlinked directories", func(t *testing.T) {
		outside := t.TempDir()
		writeFile(t, outside, "outside.fits", []byte("x"))

		root := t.TempDir()
		writeFile(t, root, "inside.fits", []byte("x"))
		if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		found, _ := collectPaths(t, root, NewIgnoreMatcher("", ""))
		if len(found) != 1 || found[0] != "inside.fits" {
			t.Errorf("found = %v, want [inside.fits]", found)
		}
	})

	t.Run("follows symlinks to regular files", func(t *testing.T) {
		outside := t.TempDir()
		writeFile(t, outside, "target.fits", []byte("abcd"))

		root := t.TempDir()
		if err := os.Symlink(filepath.Join(outside, "target.fits"), filepath.Join(root, "link.fits")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		var entry Entry
		err := WalkRoot(root, NewIgnoreMatcher("", ""), nil, func(e Entry) error {
			entry = e
			return nil
		})
		if err != nil {
			t.Fatalf("WalkRoot failed: %v", err)
		}
		if entry.RelPath != "link.fits" || entry.Size != 4 {
			t.Errorf("entry = %+v, want link.fits with size 4", entry)
		}
	})
}

func TestIsCandidate(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"a.fits", true},
		{"a.FIT", true},
		{"a.fits.gz", true},
		{"a.fit.bz2", true},
		{"a.fits.xz", true},
		{"a.xisf", true},
		{"a.xisf.gz", false}, // externally compressed XISF unsupported
		{"a.jpg", false},
		{"a.fits.zip", false},
	}
	for _, tc := range cases {
		if got := IsCandidate(tc.name); got != tc.want {
			t.Errorf("IsCandidate(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
