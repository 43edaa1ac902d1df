// Package header reads capture metadata out of astronomical image
// containers. It understands FITS flat key/value header blocks and
// XISF XML headers, with transparent decompression of gzip, bzip2 and
// xz streams detected by their signatures.
package header

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"astrocat/internal/model"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	fitsMagic  = []byte("SIMPLE  =")
	xisfMagic  = []byte("XISF0100")
)

// Record is the result of a successful extraction: the normalized
// metadata plus the raw header text, which callers cache for header
// search and reporting.
type Record struct {
	Metadata model.Metadata
	Raw      string
}

// Extract reads the header of the container in r and returns the
// normalized metadata record. Unknown or missing keys yield absent
// fields; a header with zero recognized keys is a valid all-absent
// record with frame type UNKNOWN. An error is returned only when the
// stream is unreadable, truncated, or not a recognized container.
func Extract(r io.Reader) (*Record, error) {
	dr, _, err := Decompress(r)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(dr, fitsBlockSize)
	sig, err := br.Peek(len(fitsMagic))
	if err != nil {
		return nil, fmt.Errorf("reading container signature: %w", err)
	}

	switch {
	case bytes.HasPrefix(sig, xisfMagic):
		return extractXISF(br)
	case bytes.Equal(sig, fitsMagic):
		return extractFITS(br)
	default:
		return nil, fmt.Errorf("unrecognized container signature %q", sig[:8])
	}
}

// Decompress wraps r so reads see the uncompressed stream, sniffing
// the compression kind from the stream's leading bytes. Uncompressed
// input is passed through untouched.
func Decompress(r io.Reader) (io.Reader, model.Compression, error) {
	br := bufio.NewReader(r)
	sig, err := br.Peek(len(xzMagic))
	if err != nil && len(sig) < 2 {
		// Too short to carry any signature; let the container
		// parser report the real problem.
		return br, model.CompressionNone, nil
	}

	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, model.CompressionGzip, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, model.CompressionGzip, nil
	case bytes.HasPrefix(sig, bzip2Magic):
		return bzip2.NewReader(br), model.CompressionBzip2, nil
	case bytes.HasPrefix(sig, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, model.CompressionXz, fmt.Errorf("opening xz stream: %w", err)
		}
		return xr, model.CompressionXz, nil
	default:
		return br, model.CompressionNone, nil
	}
}
