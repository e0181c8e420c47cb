package storage

import (
	"context"

	"car-dashboard/models"
)

// ListingSource is the interface any dataset backend must satisfy.
// Sources are read-only: nothing in this package writes back to them.
type ListingSource interface {
	// Load reads every row of the source.
	Load(ctx context.Context) ([]models.Listing, error)
	// Marker returns a value that changes whenever the source content changes.
	Marker(ctx context.Context) (string, error)
	Close() error
}

// ListingWriter streams rows to an output such as an HTTP response.
type ListingWriter interface {
	Write(listings []models.Listing) error
	Close() error
}
