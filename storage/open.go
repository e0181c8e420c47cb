package storage

import (
	"context"
	"strings"

	"car-dashboard/utils"
)

// Options carries settings needed by non-file sources.
type Options struct {
	PostgresTable string
	Retry         *utils.RetryConfig
}

// Open picks a ListingSource for source:
//
//	s3://bucket/key             S3 object (CSV or Parquet by extension)
//	postgres://... postgresql:// PostgreSQL table Options.PostgresTable
//	anything else               local file path
func Open(ctx context.Context, source string, opts Options) (ListingSource, error) {
	switch {
	case strings.HasPrefix(source, "s3://"):
		return NewS3Source(ctx, source)
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		retry := opts.Retry
		if retry == nil {
			retry = &utils.RetryConfig{MaxAttempts: 1}
		}
		table := opts.PostgresTable
		if table == "" {
			table = "vehicles"
		}
		return NewPostgresReader(ctx, source, table, retry)
	default:
		return NewFileSource(source), nil
	}
}
