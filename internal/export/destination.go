package export

import (
	"context"
	"fmt"
	"io"

	"astrocat/internal/config"
)

// Destination receives exported files. Implementations must tolerate
// being handed the same relative path twice: the later write wins.
type Destination interface {
	Name() string
	Put(ctx context.Context, relPath string, r io.Reader) error
}

// NewDestinationFromConfig creates a Destination based on the export
// config type.
func NewDestinationFromConfig(ctx context.Context, cfg config.ExportConfig) (Destination, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem export destination")
		}
		return NewFileSystemDestination(cfg.Name, cfg.FSRoot), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3_bucket required for s3 export destination")
		}
		return NewS3Destination(ctx, cfg.Name, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown export destination type: %s", cfg.Type)
	}
}
