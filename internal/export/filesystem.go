package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileSystemDestination writes exports under a root directory,
// creating intermediate directories as needed. Writes are atomic so
// an interrupted export never leaves a partial file.
type FileSystemDestination struct {
	name string
	root string
}

var _ Destination = (*FileSystemDestination)(nil)

func NewFileSystemDestination(name, root string) *FileSystemDestination {
	return &FileSystemDestination{name: name, root: root}
}

func (d *FileSystemDestination) Name() string {
	return d.name
}

func (d *FileSystemDestination) Put(_ context.Context, relPath string, r io.Reader) error {
	destPath := filepath.Join(d.root, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := atomic.WriteFile(destPath, r); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}
