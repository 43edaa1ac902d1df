package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

// Card is one FITS header keyword/value pair.
type Card struct {
	Key   string
	Value string // rendered verbatim into the value field
}

// BuildFITS builds a minimal FITS file: a header with the given cards
// (SIMPLE is prepended, END appended) padded to full 2880-byte
// blocks, followed by one empty data block.
func BuildFITS(t *testing.T, cards ...Card) []byte {
	t.Helper()

	var b bytes.Buffer
	writeCard(&b, "SIMPLE", "T")
	for _, c := range cards {
		writeCard(&b, c.Key, c.Value)
	}
	b.WriteString(padCard("END"))

	for b.Len()%2880 != 0 {
		b.WriteByte(' ')
	}
	b.Write(make([]byte, 2880)) // data block

	return b.Bytes()
}

func writeCard(b *bytes.Buffer, key, value string) {
	card := fmt.Sprintf("%-8s= %s", key, value)
	b.WriteString(padCard(card))
}

func padCard(s string) string {
	if len(s) > 80 {
		return s[:80]
	}
	return s + strings.Repeat(" ", 80-len(s))
}

// StringValue quotes a string for a FITS card value field.
func StringValue(v string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
}

// BuildXISF builds a minimal XISF monolithic file whose header holds
// one Image element carrying the given FITSKeyword elements.
func BuildXISF(t *testing.T, keywords map[string]string) []byte {
	t.Helper()

	var xml bytes.Buffer
	xml.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	xml.WriteString(`<xisf version="1.0"><Image geometry="2:2:1" sampleFormat="UInt16">`)
	for k, v := range keywords {
		fmt.Fprintf(&xml, `<FITSKeyword name="%s" value="%s" comment=""/>`, k, v)
	}
	xml.WriteString(`</Image></xisf>`)

	var b bytes.Buffer
	b.WriteString("XISF0100")
	if err := binary.Write(&b, binary.LittleEndian, uint32(xml.Len())); err != nil {
		t.Fatalf("writing header length: %v", err)
	}
	b.Write([]byte{0, 0, 0, 0})
	b.Write(xml.Bytes())
	return b.Bytes()
}

// GzipBytes compresses data with gzip.
func GzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return b.Bytes()
}

// XzBytes compresses data with xz.
func XzBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var b bytes.Buffer
	w, err := xz.NewWriter(&b)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return b.Bytes()
}
