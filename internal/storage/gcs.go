package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/joseph-ayodele/property-intake/internal/common"
)

// GCS serves blobs from a Google Cloud Storage bucket. Paths may be bare
// object names or gs://bucket/object URLs.
type GCS struct {
	client *storage.Client
	bucket string
	opts   Options
}

// NewGCS uses application default credentials.
func NewGCS(ctx context.Context, bucket string, opts Options) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: GCS_BUCKET is required", common.ErrInvalidInput)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, opts: opts}, nil
}

func (s *GCS) Download(ctx context.Context, path string) ([]byte, error) {
	bucket, object := splitURL(path, "gs://", s.bucket)
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, notFound(path, err)
		}
		return nil, fmt.Errorf("%w: gcs get %s: %v", common.ErrStorage, path, err)
	}
	defer func() { _ = r.Close() }()
	return readLimited(r, s.opts.ReadLimit)
}

func (s *GCS) Close() error {
	return s.client.Close()
}

// splitURL separates scheme://bucket/key; anything else is a key in the
// default bucket.
func splitURL(path, scheme, defaultBucket string) (string, string) {
	if rest, ok := strings.CutPrefix(path, scheme); ok {
		if bucket, key, ok := strings.Cut(rest, "/"); ok {
			return bucket, key
		}
	}
	return defaultBucket, strings.TrimPrefix(path, "/")
}
