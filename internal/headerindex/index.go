// Package headerindex provides full-text search over cached FITS and
// XISF header text using a bleve index stored alongside the catalog.
package headerindex

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
)

// doc is the indexed representation of one file's header. The bleve
// document ID is the catalog file ID.
type doc struct {
	RelPath string `json:"rel_path"`
	Header  string `json:"header"`
}

// Index wraps a bleve index of raw header text keyed by file ID.
type Index struct {
	index bleve.Index
	path  string
}

// Open opens the index at path, creating it when absent. Bleve
// indexes are directories.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		mapping := bleve.NewIndexMapping()
		idx, err := bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("creating header index: %w", err)
		}
		return &Index{index: idx, path: path}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening header index: %w", err)
	}
	return &Index{index: idx, path: path}, nil
}

// OpenMemOnly creates a throwaway in-memory index for tests.
func OpenMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating in-memory header index: %w", err)
	}
	return &Index{index: idx}, nil
}

func (i *Index) Close() error {
	return i.index.Close()
}

// IndexHeader adds or replaces the header document for a file.
func (i *Index) IndexHeader(fileID, relPath, raw string) error {
	if err := i.index.Index(fileID, doc{RelPath: relPath, Header: raw}); err != nil {
		return fmt.Errorf("indexing header for %s: %w", relPath, err)
	}
	return nil
}

// Remove deletes a file's header document. Removing an unknown ID is
// not an error.
func (i *Index) Remove(fileID string) error {
	if err := i.index.Delete(fileID); err != nil {
		return fmt.Errorf("removing header for %s: %w", fileID, err)
	}
	return nil
}

// HeaderSource yields every cached header for a rebuild.
type HeaderSource interface {
	WalkHeaders(fn func(fileID, relPath, raw string) error) error
}

// Rebuild drops all documents and re-indexes every cached header from
// the source. Documents are indexed in batches.
func (i *Index) Rebuild(src HeaderSource) (int, error) {
	// Delete everything currently indexed.
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Size = 100000
	req.Fields = []string{}
	res, err := i.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("enumerating header index: %w", err)
	}
	deleteBatch := i.index.NewBatch()
	for _, hit := range res.Hits {
		deleteBatch.Delete(hit.ID)
	}
	if err := i.index.Batch(deleteBatch); err != nil {
		return 0, fmt.Errorf("clearing header index: %w", err)
	}

	const batchSize = 100
	batch := i.index.NewBatch()
	count := 0
	err = src.WalkHeaders(func(fileID, relPath, raw string) error {
		if err := batch.Index(fileID, doc{RelPath: relPath, Header: raw}); err != nil {
			return fmt.Errorf("batching header for %s: %w", relPath, err)
		}
		count++
		if batch.Size() >= batchSize {
			if err := i.index.Batch(batch); err != nil {
				return fmt.Errorf("flushing index batch: %w", err)
			}
			batch = i.index.NewBatch()
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	if batch.Size() > 0 {
		if err := i.index.Batch(batch); err != nil {
			return count, fmt.Errorf("flushing index batch: %w", err)
		}
	}
	return count, nil
}

// Hit is one search result.
type Hit struct {
	FileID  string
	RelPath string
}

// Search runs a bleve query-string query over indexed header text and
// returns matching files best-first.
func (i *Index) Search(queryString string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 50
	}
	q := bleve.NewQueryStringQuery(queryString)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"rel_path"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching header index: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		h := Hit{FileID: hit.ID}
		if v, ok := hit.Fields["rel_path"].(string); ok {
			h.RelPath = v
		}
		hits = append(hits, h)
	}
	return hits, nil
}
