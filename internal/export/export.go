// Package export copies cataloged frames to export destinations,
// laying them out according to a metadata path template.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"astrocat/internal/catalog"
	"astrocat/internal/header"
	"astrocat/internal/model"
)

// Item pairs a catalog file with its absolute on-disk path.
type Item struct {
	File    *model.File
	AbsPath string
}

// Options controls an export run.
type Options struct {
	// Template is the destination path template. Empty means
	// DefaultTemplate.
	Template string
	// Decompress unpacks gzip, bzip2, and xz files on the way out.
	Decompress bool
}

// Report summarizes an export run.
type Report struct {
	Exported int
	Failed   int
}

// Exporter streams catalog files to a destination.
type Exporter struct {
	dest   Destination
	logger catalog.Logger
}

func NewExporter(dest Destination, logger catalog.Logger) *Exporter {
	return &Exporter{dest: dest, logger: logger}
}

// Export copies each item to the destination. A file that cannot be
// read or written is logged and counted; it does not abort the run.
// Cancellation stops the run between files.
func (e *Exporter) Export(ctx context.Context, items []Item, opts Options) (Report, error) {
	template := opts.Template
	if template == "" {
		template = DefaultTemplate
	}

	var report Report
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.exportOne(ctx, item, template, opts.Decompress); err != nil {
			report.Failed++
			e.logger.Warn("export failed", "path", item.File.RelPath, "error", err)
			continue
		}
		report.Exported++
	}
	return report, nil
}

func (e *Exporter) exportOne(ctx context.Context, item Item, template string, decompress bool) error {
	src, err := os.Open(item.AbsPath)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	f := item.File
	var reader io.Reader = src
	if decompress && f.Compression != model.CompressionNone {
		dec, _, err := header.Decompress(src)
		if err != nil {
			return fmt.Errorf("decompressing: %w", err)
		}
		reader = dec

		// The exported file is no longer compressed, so the template
		// should see the uncompressed name.
		clone := *f
		clone.RelPath = stripCompressionExt(f.RelPath)
		clone.Compression = model.CompressionNone
		f = &clone
	}

	relPath, err := Expand(template, f)
	if err != nil {
		return err
	}
	return e.dest.Put(ctx, relPath, reader)
}

func stripCompressionExt(p string) string {
	for _, ext := range []string{".gz", ".bz2", ".xz"} {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			return p[:len(p)-len(ext)]
		}
	}
	return p
}
