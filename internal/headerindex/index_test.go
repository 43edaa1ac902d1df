package headerindex

import (
	"fmt"
	"testing"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenMemOnly()
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	t.Cleanup(func() {
		idx.Close()
	})
	return idx
}

func TestIndex_Search(t *testing.T) {
	idx := newTestIndex(t)

	headers := map[string][2]string{
		"file-1": {"lights/m31_ha.fits", "OBJECT  = 'M31' / Andromeda Galaxy\nFILTER  = 'Ha'"},
		"file-2": {"lights/m42.fits", "OBJECT  = 'M42' / Orion Nebula\nFILTER  = 'OIII'"},
		"file-3": {"darks/d300.fits", "IMAGETYP= 'Dark Frame'\nEXPTIME = 300.0"},
	}
	for id, h := range headers {
		if err := idx.IndexHeader(id, h[0], h[1]); err != nil {
			t.Fatalf("IndexHeader failed: %v", err)
		}
	}

	t.Run("matches header text", func(t *testing.T) {
		hits, err := idx.Search("Andromeda", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 1 || hits[0].FileID != "file-1" {
			t.Fatalf("hits = %+v, want file-1", hits)
		}
		if hits[0].RelPath != "lights/m31_ha.fits" {
			t.Errorf("RelPath = %s", hits[0].RelPath)
		}
	})

	t.Run("no match yields no hits", func(t *testing.T) {
		hits, err := idx.Search("Pleiades", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("hits = %+v, want none", hits)
		}
	})

	t.Run("limit caps results", func(t *testing.T) {
		hits, err := idx.Search("OBJECT", 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("got %d hits, want 1", len(hits))
		}
	})

	t.Run("reindex replaces the document", func(t *testing.T) {
		if err := idx.IndexHeader("file-2", "lights/m42.fits", "OBJECT  = 'M42' / Great Nebula"); err != nil {
			t.Fatalf("IndexHeader failed: %v", err)
		}
		hits, err := idx.Search("Orion", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("stale document still matches: %+v", hits)
		}
	})
}

func TestIndex_Remove(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.IndexHeader("file-1", "a.fits", "OBJECT = 'M31'"); err != nil {
		t.Fatalf("IndexHeader failed: %v", err)
	}

	if err := idx.Remove("file-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	hits, _ := idx.Search("M31", 0)
	if len(hits) != 0 {
		t.Errorf("removed document still matches: %+v", hits)
	}

	if err := idx.Remove("unknown"); err != nil {
		t.Errorf("removing unknown ID: %v", err)
	}
}

// stubSource walks a fixed header set.
type stubSource struct {
	headers [][3]string
}

func (s *stubSource) WalkHeaders(fn func(fileID, relPath, raw string) error) error {
	for _, h := range s.headers {
		if err := fn(h[0], h[1], h[2]); err != nil {
			return err
		}
	}
	return nil
}

func TestIndex_Rebuild(t *testing.T) {
	idx := newTestIndex(t)

	// Stale content that the rebuild must drop.
	if err := idx.IndexHeader("stale-1", "old.fits", "OBJECT = 'NGC7000'"); err != nil {
		t.Fatalf("IndexHeader failed: %v", err)
	}

	src := &stubSource{}
	for i := 0; i < 150; i++ {
		src.headers = append(src.headers, [3]string{
			fmt.Sprintf("file-%d", i),
			fmt.Sprintf("lights/%d.fits", i),
			fmt.Sprintf("OBJECT  = 'M%d'", i),
		})
	}

	count, err := idx.Rebuild(src)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if count != 150 {
		t.Errorf("count = %d, want 150", count)
	}

	hits, _ := idx.Search("NGC7000", 0)
	if len(hits) != 0 {
		t.Errorf("stale document survived rebuild: %+v", hits)
	}
	hits, err = idx.Search("M42", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.FileID == "file-42" {
			found = true
		}
	}
	if !found {
		t.Error("rebuilt document not searchable")
	}
}
