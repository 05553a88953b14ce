// Package blob stores proof images captured on admitted attendance attempts.
package blob

import (
	"context"
	"fmt"

	"github.com/fahry-ali/hadirku-deploy/internal/config"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local capture directory (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Store is the minimal surface the attendance pipeline needs: write a proof
// image, read it back, and delete it again when a record insert fails after
// the image was already written.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Driver() Driver
}

// New constructs the blob store selected by configuration.
func New(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
}
