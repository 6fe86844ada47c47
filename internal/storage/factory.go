// Package storage selects the artifact store named in configuration.
package storage

import (
	"context"
	"fmt"

	"avplan/internal/config"
	"avplan/internal/port"
	"avplan/internal/storage/gcs"
	"avplan/internal/storage/local"
	"avplan/internal/storage/s3"
)

// New builds the ObjectStorage for cfg.Backend: local, s3 or gcs.
func New(ctx context.Context, cfg *config.StorageConfig) (port.ObjectStorage, error) {
	switch cfg.Backend {
	case "", "local":
		return local.New(cfg.LocalDir)
	case "s3":
		return s3.NewS3Client(ctx, &cfg.S3)
	case "gcs":
		return gcs.NewGCSClient(ctx, &cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
