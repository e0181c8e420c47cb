package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"car-dashboard/models"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Source loads listings from one S3 object (CSV or Parquet).
type S3Source struct {
	client S3API
	uri    string
	bucket string
	key    string
}

// NewS3Source builds a source for an s3://bucket/key URI using the default
// AWS configuration chain.
func NewS3Source(ctx context.Context, uri string) (*S3Source, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, unavailable(uri, err)
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, unavailable(uri, fmt.Errorf("load AWS config: %w", err))
	}
	return NewS3SourceWithClient(s3.NewFromConfig(cfg), bucket, key), nil
}

// NewS3SourceWithClient builds a source around an existing client.
func NewS3SourceWithClient(client S3API, bucket, key string) *S3Source {
	return &S3Source{
		client: client,
		uri:    "s3://" + bucket + "/" + key,
		bucket: bucket,
		key:    key,
	}
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 uri has no object key: %q", uri)
	}
	return u.Host, key, nil
}

// Load downloads the object and decodes it by key extension.
func (s *S3Source) Load(ctx context.Context) ([]models.Listing, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, unavailable(s.uri, fmt.Errorf("get object: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(s.uri, fmt.Errorf("read object: %w", err))
	}
	listings, err := decode(s.key, data)
	if err != nil {
		return nil, unavailable(s.uri, err)
	}
	return listings, nil
}

// Marker returns the object's ETag.
func (s *S3Source) Marker(ctx context.Context) (string, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return "", unavailable(s.uri, fmt.Errorf("head object: %w", err))
	}
	return aws.ToString(head.ETag), nil
}

func (s *S3Source) Close() error { return nil }
