package header_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"astrocat/internal/header"
	"astrocat/internal/model"
	"astrocat/internal/testutil"
)

func TestExtract_FITS(t *testing.T) {
	t.Run("extracts normalized metadata from standard keywords", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "IMAGETYP", Value: testutil.StringValue("Light Frame")},
			testutil.Card{Key: "EXPTIME", Value: "300.0"},
			testutil.Card{Key: "GAIN", Value: "100"},
			testutil.Card{Key: "XBINNING", Value: "1"},
			testutil.Card{Key: "SET-TEMP", Value: "-10.0"},
			testutil.Card{Key: "CCD-TEMP", Value: "-9.8"},
			testutil.Card{Key: "FILTER", Value: testutil.StringValue("Ha")},
			testutil.Card{Key: "INSTRUME", Value: testutil.StringValue("ZWO ASI2600MM")},
			testutil.Card{Key: "TELESCOP", Value: testutil.StringValue("EdgeHD 8")},
			testutil.Card{Key: "OBJECT", Value: testutil.StringValue("M31")},
			testutil.Card{Key: "DATE-OBS", Value: testutil.StringValue("2025-03-10T21:30:00")},
			testutil.Card{Key: "OBJCTRA", Value: testutil.StringValue("10 30 00")},
			testutil.Card{Key: "OBJCTDEC", Value: testutil.StringValue("-45 30 00")},
		)

		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		m := rec.Metadata
		if m.FrameType != model.FrameLight {
			t.Errorf("frame type = %s, want LIGHT", m.FrameType)
		}
		if m.Exposure == nil || *m.Exposure != 300.0 {
			t.Errorf("exposure = %v, want 300", m.Exposure)
		}
		if m.Gain == nil || *m.Gain != 100 {
			t.Errorf("gain = %v, want 100", m.Gain)
		}
		if m.Binning == nil || *m.Binning != 1 {
			t.Errorf("binning = %v, want 1", m.Binning)
		}
		if m.SetTemp == nil || *m.SetTemp != -10.0 {
			t.Errorf("set temp = %v, want -10", m.SetTemp)
		}
		if m.CCDTemp == nil || *m.CCDTemp != -9.8 {
			t.Errorf("ccd temp = %v, want -9.8", m.CCDTemp)
		}
		if m.Filter == nil || *m.Filter != "Ha" {
			t.Errorf("filter = %v, want Ha", m.Filter)
		}
		if m.Camera == nil || *m.Camera != "ZWO ASI2600MM" {
			t.Errorf("camera = %v, want ZWO ASI2600MM", m.Camera)
		}
		if m.Telescope == nil || *m.Telescope != "EdgeHD 8" {
			t.Errorf("telescope = %v, want EdgeHD 8", m.Telescope)
		}
		if m.Object == nil || *m.Object != "M31" {
			t.Errorf("object = %v, want M31", m.Object)
		}
		want := time.Date(2025, 3, 10, 21, 30, 0, 0, time.UTC)
		if m.DateObs == nil || !m.DateObs.Equal(want) {
			t.Errorf("date obs = %v, want %v", m.DateObs, want)
		}
		if m.RA == nil || math.Abs(*m.RA-157.5) > 1e-9 {
			t.Errorf("ra = %v, want 157.5", m.RA)
		}
		if m.Dec == nil || math.Abs(*m.Dec+45.5) > 1e-9 {
			t.Errorf("dec = %v, want -45.5", m.Dec)
		}
		if rec.Raw == "" || !strings.Contains(rec.Raw, "IMAGETYP") {
			t.Error("raw header text not preserved")
		}
	})

	t.Run("honors keyword aliases", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "OBSTYPE", Value: testutil.StringValue("dark")},
			testutil.Card{Key: "EXPOSURE", Value: "120"},
			testutil.Card{Key: "GAIN", Value: "139.0"}, // float-typed integer
			testutil.Card{Key: "BINNING", Value: testutil.StringValue("2*2")},
			testutil.Card{Key: "FILTNAME", Value: testutil.StringValue("L")},
			testutil.Card{Key: "CCDTEMP", Value: "-15"},
			testutil.Card{Key: "RA", Value: "123.5"},
			testutil.Card{Key: "DEC", Value: "-20.25"},
		)

		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		m := rec.Metadata
		if m.FrameType != model.FrameDark {
			t.Errorf("frame type = %s, want DARK", m.FrameType)
		}
		if m.Exposure == nil || *m.Exposure != 120 {
			t.Errorf("exposure = %v, want 120", m.Exposure)
		}
		if m.Gain == nil || *m.Gain != 139 {
			t.Errorf("gain = %v, want 139", m.Gain)
		}
		if m.Binning == nil || *m.Binning != 2 {
			t.Errorf("binning = %v, want 2", m.Binning)
		}
		if m.Filter == nil || *m.Filter != "L" {
			t.Errorf("filter = %v, want L", m.Filter)
		}
		if m.CCDTemp == nil || *m.CCDTemp != -15 {
			t.Errorf("ccd temp = %v, want -15", m.CCDTemp)
		}
		if m.RA == nil || *m.RA != 123.5 {
			t.Errorf("ra = %v, want 123.5 (decimal degrees pass through)", m.RA)
		}
		if m.Dec == nil || *m.Dec != -20.25 {
			t.Errorf("dec = %v, want -20.25", m.Dec)
		}
	})

	t.Run("discards zero-zero coordinates", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "RA", Value: "0.0"},
			testutil.Card{Key: "DEC", Value: "0.0"},
		)
		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if rec.Metadata.RA != nil || rec.Metadata.Dec != nil {
			t.Errorf("coordinates = %v/%v, want absent", rec.Metadata.RA, rec.Metadata.Dec)
		}
	})

	t.Run("requires both coordinates", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "RA", Value: "123.5"},
		)
		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if rec.Metadata.RA != nil || rec.Metadata.Dec != nil {
			t.Errorf("coordinates = %v/%v, want absent", rec.Metadata.RA, rec.Metadata.Dec)
		}
	})

	t.Run("strips inline comments and unescapes quotes", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "EXPTIME", Value: "60.0 / exposure in seconds"},
			testutil.Card{Key: "OBJECT", Value: "'Barnard''s Loop / south'"},
		)
		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if rec.Metadata.Exposure == nil || *rec.Metadata.Exposure != 60 {
			t.Errorf("exposure = %v, want 60", rec.Metadata.Exposure)
		}
		if rec.Metadata.Object == nil || *rec.Metadata.Object != "Barnard's Loop / south" {
			t.Errorf("object = %v, want Barnard's Loop / south", rec.Metadata.Object)
		}
	})

	t.Run("header with no recognized keys is all-absent", func(t *testing.T) {
		data := testutil.BuildFITS(t,
			testutil.Card{Key: "BITPIX", Value: "16"},
		)
		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		m := rec.Metadata
		if m.FrameType != model.FrameUnknown {
			t.Errorf("frame type = %s, want UNKNOWN", m.FrameType)
		}
		if m.Exposure != nil || m.Filter != nil || m.Camera != nil {
			t.Error("expected all metadata fields absent")
		}
	})

	t.Run("rejects a header without END", func(t *testing.T) {
		data := testutil.BuildFITS(t)
		truncated := data[:2880]
		copyNoEnd := bytes.ReplaceAll(truncated, []byte("END     "), []byte("        "))
		if _, err := header.Extract(bytes.NewReader(copyNoEnd)); err == nil {
			t.Fatal("expected error for truncated header")
		}
	})

	t.Run("rejects an unrecognized container", func(t *testing.T) {
		if _, err := header.Extract(strings.NewReader("JFIF not an image header at all......")); err == nil {
			t.Fatal("expected error for unknown signature")
		}
	})
}

func TestExtract_Compressed(t *testing.T) {
	plain := testutil.BuildFITS(t,
		testutil.Card{Key: "IMAGETYP", Value: testutil.StringValue("Flat Field")},
	)

	t.Run("gzip", func(t *testing.T) {
		rec, err := header.Extract(bytes.NewReader(testutil.GzipBytes(t, plain)))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if rec.Metadata.FrameType != model.FrameFlat {
			t.Errorf("frame type = %s, want FLAT", rec.Metadata.FrameType)
		}
	})

	t.Run("xz", func(t *testing.T) {
		rec, err := header.Extract(bytes.NewReader(testutil.XzBytes(t, plain)))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if rec.Metadata.FrameType != model.FrameFlat {
			t.Errorf("frame type = %s, want FLAT", rec.Metadata.FrameType)
		}
	})

	t.Run("Decompress reports the compression kind", func(t *testing.T) {
		_, kind, err := header.Decompress(bytes.NewReader(testutil.GzipBytes(t, plain)))
		if err != nil {
			t.Fatalf("Decompress failed: %v", err)
		}
		if kind != model.CompressionGzip {
			t.Errorf("kind = %s, want gzip", kind)
		}
	})
}

func TestExtract_XISF(t *testing.T) {
	t.Run("extracts FITSKeyword metadata", func(t *testing.T) {
		data := testutil.BuildXISF(t, map[string]string{
			"IMAGETYP": "Dark Frame",
			"EXPTIME":  "300",
			"GAIN":     "100",
			"XBINNING": "1",
			"INSTRUME": "'ZWO ASI2600MM'",
		})

		rec, err := header.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}

		m := rec.Metadata
		if m.FrameType != model.FrameDark {
			t.Errorf("frame type = %s, want DARK", m.FrameType)
		}
		if m.Exposure == nil || *m.Exposure != 300 {
			t.Errorf("exposure = %v, want 300", m.Exposure)
		}
		if m.Camera == nil || *m.Camera != "ZWO ASI2600MM" {
			t.Errorf("camera = %v, want quotes stripped", m.Camera)
		}
		if !strings.Contains(rec.Raw, "FITSKeyword") {
			t.Error("raw XML header not preserved")
		}
	})

	t.Run("rejects implausible header length", func(t *testing.T) {
		data := []byte("XISF0100\xff\xff\xff\xff\x00\x00\x00\x00")
		if _, err := header.Extract(bytes.NewReader(data)); err == nil {
			t.Fatal("expected error for corrupt header length")
		}
	})
}

func TestNormalizeFrameType(t *testing.T) {
	cases := []struct {
		raw  string
		want model.FrameType
	}{
		{"Light Frame", model.FrameLight},
		{"LIGHT", model.FrameLight},
		{"dark", model.FrameDark},
		{"Flat Field", model.FrameFlat},
		{"flatfield", model.FrameFlat},
		{"Bias Frame", model.FrameBias},
		{"zero", model.FrameBias},
		{"DARKFLAT", model.FrameUnknown},
		{"", model.FrameUnknown},
	}
	for _, tc := range cases {
		if got := model.NormalizeFrameType(tc.raw); got != tc.want {
			t.Errorf("NormalizeFrameType(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
