package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/roster/internal/core"
)

// putObjectAPI is the part of *s3.Client the sink uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds configuration for S3Sink.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint (MinIO, LocalStack)
	Prefix   string // optional key prefix, e.g. "exports/"
}

// S3Sink uploads blobs to a bucket.
type S3Sink struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Sink loads the default AWS configuration and creates a sink.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is required")
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
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads b under prefix + name and returns its s3:// URL.
func (s *S3Sink) Put(ctx context.Context, b core.Blob) (string, error) {
	key := s.prefix + path.Base(b.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String(b.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
