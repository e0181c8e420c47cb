package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"car-dashboard/models"
)

// FileSource loads listings from a local CSV/TSV or Parquet file.
type FileSource struct {
	path string
}

// NewFileSource returns a source for path. The file is not opened until Load.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the whole file.
func (f *FileSource) Load(_ context.Context) ([]models.Listing, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, unavailable(f.path, err)
	}
	listings, err := decode(f.path, data)
	if err != nil {
		return nil, unavailable(f.path, err)
	}
	return listings, nil
}

// Marker combines the modification time and size of the file.
func (f *FileSource) Marker(_ context.Context) (string, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return "", unavailable(f.path, err)
	}
	if info.IsDir() {
		return "", unavailable(f.path, fmt.Errorf("is a directory"))
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func (f *FileSource) Close() error { return nil }

// decode picks a decoder from the file name extension.
func decode(name string, data []byte) ([]models.Listing, error) {
	if strings.EqualFold(filepath.Ext(name), ".parquet") {
		return DecodeParquet(bytes.NewReader(data), int64(len(data)))
	}
	return DecodeCSV(bytes.NewReader(data))
}
