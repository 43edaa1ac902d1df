package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestManager_ReadWrite(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		cfg := NewConfig("/home/obs/.local/share/astrocat")
		cfg.Scan.IgnoreFiles = "*.tmp.fits|thumbs.db"
		cfg.Scan.IgnoreDirs = "rejects|.Trash*"
		cfg.Match.ExposureToleranceSeconds = 15
		cfg.Export = []ExportConfig{
			{Type: "filesystem", Name: "nas", FSRoot: "/mnt/nas/astro"},
			{Type: "s3", Name: "offsite", S3Bucket: "astro-archive", S3Prefix: "catalog/", S3Region: "us-east-1"},
		}

		m := &Manager{}
		var buf bytes.Buffer
		if err := m.Write(&buf, cfg); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		got, err := m.Read(&buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if diff := cmp.Diff(cfg, got); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects malformed toml", func(t *testing.T) {
		m := &Manager{}
		_, err := m.Read(strings.NewReader("base_dir = [unclosed"))
		if err == nil {
			t.Fatal("expected decode error")
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/astrocat")

	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/astrocat" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Scan.Workers)
	}
	if cfg.Index.Dir != filepath.Join("/data/astrocat", "headers.bleve") {
		t.Errorf("index dir = %s", cfg.Index.Dir)
	}
	if cfg.SessionPath != filepath.Join("/data/astrocat", "session_v1.json") {
		t.Errorf("session path = %s", cfg.SessionPath)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config in a new directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "astrocat.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init failed: %v", err)
		}

		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile failed: %v", err)
		}
		if cfg.BaseDir != dir {
			t.Errorf("base_dir = %s, want %s", cfg.BaseDir, dir)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "astrocat.toml")
		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("expected error on existing config file")
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
