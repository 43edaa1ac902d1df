package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for astrocat.
type Config struct {
	BaseDir     string         `toml:"base_dir"`
	LogDir      string         `toml:"log_dir"`
	SessionPath string         `toml:"session_path"`
	Database    DatabaseConfig `toml:"database"`
	Scan        ScanConfig     `toml:"scan"`
	Match       MatchConfig    `toml:"match"`
	Index       IndexConfig    `toml:"index"`
	Export      []ExportConfig `toml:"export"`
}

// DatabaseConfig represents configuration for the catalog database.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ScanConfig holds library scanning settings.
type ScanConfig struct {
	// IgnoreFiles and IgnoreDirs are pipe-separated, case-insensitive
	// glob patterns matched against base names.
	IgnoreFiles string `toml:"ignore_files"`
	IgnoreDirs  string `toml:"ignore_dirs"`
	// Workers bounds the header-extraction pool. Zero means one.
	Workers int `toml:"workers"`
}

// MatchConfig holds calibration-matching settings.
type MatchConfig struct {
	// ExposureToleranceSeconds widens dark-frame exposure matching.
	// Zero requires equality after rounding to the nearest second.
	ExposureToleranceSeconds float64 `toml:"exposure_tolerance_seconds"`
}

// IndexConfig holds full-text header index settings.
type IndexConfig struct {
	Dir string `toml:"dir"`
}

// ExportConfig represents a named export destination.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type ExportConfig struct {
	Type string `toml:"type"` // "filesystem" or "s3"
	Name string `toml:"name"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:     baseDir,
		LogDir:      filepath.Join(baseDir, "log"),
		SessionPath: filepath.Join(baseDir, "session_v1.json"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
		Scan: ScanConfig{
			IgnoreFiles: "",
			IgnoreDirs:  "",
			Workers:     4,
		},
		Index: IndexConfig{
			Dir: filepath.Join(baseDir, "headers.bleve"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path. It
// refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
