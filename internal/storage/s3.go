package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joseph-ayodele/property-intake/internal/common"
)

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO or LocalStack
}

// S3 serves blobs from an S3 bucket. Paths may be bare keys or
// s3://bucket/key URLs.
type S3 struct {
	client *s3.Client
	bucket string
	opts   Options
}

func NewS3(ctx context.Context, cfg S3Config, opts Options) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: S3_BUCKET is required", common.ErrInvalidInput)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, opts: opts}, nil
}

func (s *S3) Download(ctx context.Context, path string) ([]byte, error) {
	bucket, key := splitURL(path, "s3://", s.bucket)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, notFound(path, err)
		}
		return nil, fmt.Errorf("%w: s3 get %s: %v", common.ErrStorage, path, err)
	}
	defer func() { _ = out.Body.Close() }()
	return readLimited(out.Body, s.opts.ReadLimit)
}

func (s *S3) Close() error { return nil }
