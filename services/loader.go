package services

import (
	"context"
	"sync"
	"time"

	"car-dashboard/models"
	"car-dashboard/storage"
	"car-dashboard/utils"
)

// OpenFunc opens a storage.ListingSource for a source string.
type OpenFunc func(ctx context.Context, source string, opts storage.Options) (storage.ListingSource, error)

// Loader loads datasets and memoizes them by source. A cached dataset is
// reused until the source's modification marker changes. Cached datasets are
// shared by every caller and must not be modified.
type Loader struct {
	logger  *utils.Logger
	cleaner *Cleaner
	opts    storage.Options
	open    OpenFunc

	mu      sync.Mutex
	entries map[string]*loaderEntry
}

type loaderEntry struct {
	src     storage.ListingSource
	dataset *models.Dataset
}

// NewLoader creates a Loader opening sources with storage.Open.
func NewLoader(logger *utils.Logger, opts storage.Options) *Loader {
	return NewLoaderWithOpener(logger, opts, storage.Open)
}

// NewLoaderWithOpener creates a Loader with a custom source opener.
func NewLoaderWithOpener(logger *utils.Logger, opts storage.Options, open OpenFunc) *Loader {
	return &Loader{
		logger:  logger,
		cleaner: NewCleaner(logger),
		opts:    opts,
		open:    open,
		entries: make(map[string]*loaderEntry),
	}
}

// Load returns the dataset for source, reading it only when it is not cached
// or its marker changed. Failures match storage.ErrDataUnavailable.
func (ld *Loader) Load(ctx context.Context, source string) (*models.Dataset, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	e, ok := ld.entries[source]
	if !ok {
		src, err := ld.open(ctx, source, ld.opts)
		if err != nil {
			return nil, err
		}
		e = &loaderEntry{src: src}
		ld.entries[source] = e
	}

	marker, err := e.src.Marker(ctx)
	if err != nil {
		e.dataset = nil
		return nil, err
	}
	if e.dataset != nil && e.dataset.Marker == marker {
		ld.logger.Debug("[loader] Cache hit for %s", source)
		return e.dataset, nil
	}

	start := time.Now()
	raw, err := e.src.Load(ctx)
	if err != nil {
		e.dataset = nil
		return nil, err
	}
	listings, _ := ld.cleaner.Clean(raw)

	e.dataset = &models.Dataset{
		Source:   source,
		Marker:   marker,
		LoadedAt: time.Now(),
		Listings: listings,
	}
	ld.logger.Info("[loader] Loaded %d listings from %s in %v",
		len(listings), source, time.Since(start).Round(time.Millisecond))
	return e.dataset, nil
}

// Invalidate drops the cached dataset for source.
func (ld *Loader) Invalidate(source string) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if e, ok := ld.entries[source]; ok {
		e.dataset = nil
	}
}

// Close releases every opened source.
func (ld *Loader) Close() error {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	var firstErr error
	for key, e := range ld.entries {
		if err := e.src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ld.entries, key)
	}
	return firstErr
}
