package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"car-dashboard/models"
)

// ParquetWriter streams listings into a Parquet file. Close must be called
// to write the footer.
type ParquetWriter struct {
	writer *parquet.GenericWriter[parquetListing]
}

// NewParquetWriter returns a writer producing Parquet on w.
func NewParquetWriter(w io.Writer) *ParquetWriter {
	return &ParquetWriter{writer: parquet.NewGenericWriter[parquetListing](w)}
}

func (p *ParquetWriter) Write(listings []models.Listing) error {
	rows := make([]parquetListing, len(listings))
	for i, l := range listings {
		rows[i] = toParquet(l)
	}
	if _, err := p.writer.Write(rows); err != nil {
		return fmt.Errorf("parquet: write rows: %w", err)
	}
	return nil
}

func (p *ParquetWriter) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("parquet: close: %w", err)
	}
	return nil
}

// EncodeParquet writes listings as a complete Parquet file to w.
func EncodeParquet(w io.Writer, listings []models.Listing) error {
	pw := NewParquetWriter(w)
	if err := pw.Write(listings); err != nil {
		return err
	}
	return pw.Close()
}

// NewWriterFor picks a ListingWriter by the extension of name: .parquet
// or .csv.
func NewWriterFor(name string, w io.Writer) (ListingWriter, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".parquet":
		return NewParquetWriter(w), nil
	case ".csv":
		cw, err := NewCSVWriter(w)
		if err != nil {
			return nil, err
		}
		return cw, nil
	}
	return nil, fmt.Errorf("no writer for %q", name)
}
