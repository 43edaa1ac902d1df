package header

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
)

// A monolithic XISF file starts with the 8-byte signature "XISF0100",
// a 4-byte little-endian header length, 4 reserved bytes, and then an
// XML header of that length. Capture metadata lives in FITSKeyword
// elements mirroring the FITS card set.
const xisfPreambleSize = 16

// xisfMaxHeaderSize bounds the XML header read so a corrupt length
// field cannot make us buffer an entire image payload.
const xisfMaxHeaderSize = 16 << 20

type xisfHeader struct {
	XMLName xml.Name    `xml:"xisf"`
	Images  []xisfImage `xml:"Image"`
}

type xisfImage struct {
	Keywords []xisfKeyword `xml:"FITSKeyword"`
}

type xisfKeyword struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func extractXISF(r io.Reader) (*Record, error) {
	preamble := make([]byte, xisfPreambleSize)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, fmt.Errorf("reading XISF preamble: %w", err)
	}

	headerLen := binary.LittleEndian.Uint32(preamble[8:12])
	if headerLen == 0 || headerLen > xisfMaxHeaderSize {
		return nil, fmt.Errorf("implausible XISF header length %d", headerLen)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading XISF header: %w", err)
	}

	var h xisfHeader
	if err := xml.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("parsing XISF header: %w", err)
	}

	// Values from the first image win; multi-image containers share
	// capture parameters in practice.
	values := make(map[string]string)
	for _, img := range h.Images {
		for _, kw := range img.Keywords {
			key := normalizeXISFKey(kw.Name)
			if _, seen := values[key]; !seen && kw.Value != "" {
				values[key] = trimXISFValue(kw.Value)
			}
		}
		if len(values) > 0 {
			break
		}
	}

	return &Record{
		Metadata: normalizeKeywords(values),
		Raw:      string(raw),
	}, nil
}

func normalizeXISFKey(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// trimXISFValue strips the single quotes some writers keep around
// string values copied verbatim from FITS cards.
func trimXISFValue(v string) string {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = v[1 : len(v)-1]
	}
	for len(v) > 0 && v[len(v)-1] == ' ' {
		v = v[:len(v)-1]
	}
	for len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return v
}
