package header

import (
	"math"
	"strconv"
	"strings"
	"time"

	"astrocat/internal/model"
)

// normalizeKeywords projects a raw keyword/value map onto the metadata
// record. Different capture programs use different keywords for the
// same quantity, so each field checks its aliases in preference order.
// Unparseable values are treated as absent, never as errors.
func normalizeKeywords(values map[string]string) model.Metadata {
	m := model.Metadata{FrameType: model.FrameUnknown}

	if raw, ok := first(values, "IMAGETYP", "OBSTYPE"); ok {
		m.FrameType = model.NormalizeFrameType(raw)
	}
	m.Exposure = floatValue(values, "EXPTIME", "EXPOSURE", "EXP")
	m.Gain = intValue(values, "GAIN")
	m.Binning = binningValue(values)
	m.SetTemp = floatValue(values, "SET-TEMP")
	m.CCDTemp = floatValue(values, "CCD-TEMP", "CCDTEMP")
	m.Filter = stringValue(values, "FILTER", "FILTNAME")
	m.Camera = stringValue(values, "INSTRUME")
	m.Telescope = stringValue(values, "TELESCOP")
	m.Object = stringValue(values, "OBJECT")
	m.DateObs = dateValue(values, "DATE-OBS")
	m.RA, m.Dec = coordinates(values)

	return m
}

func first(values map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := values[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func stringValue(values map[string]string, keys ...string) *string {
	if v, ok := first(values, keys...); ok {
		return &v
	}
	return nil
}

func floatValue(values map[string]string, keys ...string) *float64 {
	raw, ok := first(values, keys...)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &f
}

func intValue(values map[string]string, keys ...string) *int64 {
	raw, ok := first(values, keys...)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n
	}
	// Some writers store integers as floats ("100.0").
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		n := int64(math.Round(f))
		return &n
	}
	return nil
}

// binningValue prefers XBINNING; a combined BINNING value like "2*2"
// or "2x2" falls back to its first component.
func binningValue(values map[string]string) *int64 {
	if n := intValue(values, "XBINNING"); n != nil {
		return n
	}
	raw, ok := first(values, "BINNING")
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexAny(raw, "*xX"); idx >= 0 {
		raw = raw[:idx]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return nil
	}
	return &n
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func dateValue(values map[string]string, keys ...string) *time.Time {
	raw, ok := first(values, keys...)
	if !ok || raw == "N/A" {
		return nil
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// coordinates reads RA/Dec in degrees. RA and OBJCTRA, DEC and
// OBJCTDEC are accepted; values are either decimal degrees or
// sexagesimal strings (RA in hours, Dec in degrees). A 0/0 pair is
// discarded: capture programs write it when the mount reported
// nothing useful.
func coordinates(values map[string]string) (*float64, *float64) {
	ra, raOK := angleValue(values, 15, "RA", "OBJCTRA")
	dec, decOK := angleValue(values, 1, "DEC", "OBJCTDEC")
	if !raOK || !decOK {
		return nil, nil
	}
	if ra == 0 && dec == 0 {
		return nil, nil
	}
	return &ra, &dec
}

// angleValue parses a coordinate field. Decimal values are taken as
// degrees directly; sexagesimal values are scaled by hourScale (15
// for right ascension in hours, 1 for declination).
func angleValue(values map[string]string, hourScale float64, keys ...string) (float64, bool) {
	raw, ok := first(values, keys...)
	if !ok {
		return 0, false
	}
	raw = strings.TrimSpace(raw)

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, true
	}
	f, err := parseSexagesimal(raw)
	if err != nil {
		return 0, false
	}
	return f * hourScale, true
}

// parseSexagesimal parses "HH MM SS.S" or "DD:MM:SS" style values,
// honoring a leading sign on the first component.
func parseSexagesimal(raw string) (float64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ':'
	})
	if len(fields) == 0 || len(fields) > 3 {
		return 0, strconv.ErrSyntax
	}

	sign := 1.0
	if strings.HasPrefix(fields[0], "-") {
		sign = -1.0
		fields[0] = fields[0][1:]
	} else {
		fields[0] = strings.TrimPrefix(fields[0], "+")
	}

	var total, scale float64 = 0, 1
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, err
		}
		total += v / scale
		scale *= 60
	}
	return sign * total, nil
}
