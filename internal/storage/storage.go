package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/joseph-ayodele/property-intake/internal/common"
)

// Store fetches uploaded blobs by opaque path.
type Store interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// Options are shared by every backend.
type Options struct {
	// ReadLimit caps how many bytes are read from one object. The reader
	// stops one byte past the limit so the caller can tell the object is
	// oversized without buffering all of it. Zero reads everything.
	ReadLimit int64
}

// New builds the backend named by cfg.Backend (fs, gcs or s3).
func New(ctx context.Context, cfg common.StorageConfig, opts Options) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFS(cfg.Root, opts)
	case "gcs":
		return NewGCS(ctx, cfg.GCSBucket, opts)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		}, opts)
	}
	return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidInput, cfg.Backend)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	return io.ReadAll(r)
}

func notFound(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrNotFound, path, err)
}
