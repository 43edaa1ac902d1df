package header

import (
	"fmt"
	"io"
	"strings"
)

// FITS headers are a sequence of 2880-byte blocks, each holding 36
// cards of 80 characters. The header ends with a card whose keyword
// is END; the image payload follows and is never read here.
const (
	fitsBlockSize = 2880
	fitsCardSize  = 80
)

func extractFITS(r io.Reader) (*Record, error) {
	raw, err := readFITSHeader(r)
	if err != nil {
		return nil, err
	}
	return &Record{
		Metadata: normalizeKeywords(parseFITSCards(raw)),
		Raw:      raw,
	}, nil
}

// readFITSHeader reads whole blocks until the END card is found.
// A stream that ends before END is truncated or not a FITS file.
func readFITSHeader(r io.Reader) (string, error) {
	var header strings.Builder
	block := make([]byte, fitsBlockSize)

	for {
		if _, err := io.ReadFull(r, block); err != nil {
			return "", fmt.Errorf("reading header block: %w", err)
		}
		header.Write(block)

		for off := 0; off < fitsBlockSize; off += fitsCardSize {
			card := string(block[off : off+fitsCardSize])
			keyword := strings.TrimRight(card[:8], " ")
			if keyword == "END" {
				return header.String(), nil
			}
		}
	}
}

// parseFITSCards splits a raw header into keyword/value pairs. The
// first occurrence of a keyword wins. Commentary cards (COMMENT,
// HISTORY, blank keyword) carry no value and are skipped.
func parseFITSCards(raw string) map[string]string {
	values := make(map[string]string)

	for off := 0; off+fitsCardSize <= len(raw); off += fitsCardSize {
		card := raw[off : off+fitsCardSize]
		keyword := strings.TrimRight(card[:8], " ")
		if keyword == "" || keyword == "END" || keyword == "COMMENT" || keyword == "HISTORY" {
			continue
		}
		if !strings.HasPrefix(card[8:], "= ") {
			continue
		}
		value := parseCardValue(card[10:])
		if value == "" {
			continue
		}
		if _, seen := values[strings.ToUpper(keyword)]; !seen {
			values[strings.ToUpper(keyword)] = value
		}
	}

	return values
}

// parseCardValue extracts the value portion of a card body, stripping
// an inline comment. Quoted strings may contain slashes and use
// doubled quotes as an escape.
func parseCardValue(body string) string {
	body = strings.TrimLeft(body, " ")
	if body == "" {
		return ""
	}

	if body[0] == '\'' {
		var b strings.Builder
		i := 1
		for i < len(body) {
			if body[i] == '\'' {
				if i+1 < len(body) && body[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				break
			}
			b.WriteByte(body[i])
			i++
		}
		return strings.TrimRight(b.String(), " ")
	}

	if idx := strings.IndexByte(body, '/'); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
