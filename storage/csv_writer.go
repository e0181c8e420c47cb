package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"car-dashboard/models"
)

// CSVWriter streams listings as CSV to any io.Writer, typically an HTTP
// response for the full-view download. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	writer *csv.Writer
}

// NewCSVWriter writes the header row to w and returns a ready-to-use writer.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)

	header := make([]string, len(models.Fields))
	for i, f := range models.Fields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()

	return &CSVWriter{writer: cw}, cw.Error()
}

// Write appends listings. Missing numeric cells are written as empty strings.
func (c *CSVWriter) Write(listings []models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			formatFloat(l.Price.Float64, l.Price.Valid),
			formatFloat(l.Odometer.Float64, l.Odometer.Valid),
			"",
			l.Model,
			l.Type,
		}
		if l.ModelYear.Valid {
			row[2] = strconv.FormatInt(l.ModelYear.Int64, 10)
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes buffered rows. The underlying writer is left open.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.writer.Error()
}

func formatFloat(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
