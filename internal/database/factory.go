package database

import (
	"fmt"
	"path/filepath"

	"astrocat/internal/catalog"
	"astrocat/internal/config"
)

// NewStoreFromConfig creates a Store implementation based on the
// configured database type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (catalog.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "catalog.db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
