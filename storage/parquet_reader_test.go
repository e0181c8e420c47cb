package storage

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/parquet-go/parquet-go"

	"car-dashboard/models"
)

func TestParquetRoundTripKeepsMissing(t *testing.T) {
	in := []models.Listing{
		{Price: models.Float(5000), Odometer: models.Float(100000), ModelYear: models.Year(2015), Model: "civic", Type: "sedan"},
		{Odometer: models.Float(50000), ModelYear: models.Year(2018), Model: "f-150", Type: "pickup"},
	}

	var buf bytes.Buffer
	if err := EncodeParquet(&buf, in); err != nil {
		t.Fatalf("EncodeParquet: %v", err)
	}

	out, err := DecodeParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("DecodeParquet: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows: got %d, want 2", len(out))
	}
	if out[0] != in[0] {
		t.Errorf("row 0: got %+v, want %+v", out[0], in[0])
	}
	if out[1].Price.Valid {
		t.Errorf("row 1 price should be missing, got %+v", out[1].Price)
	}
}

func TestParquetMissingColumn(t *testing.T) {
	type partial struct {
		Price float64 `parquet:"price"`
		Model string  `parquet:"model"`
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, []partial{{Price: 1, Model: "civic"}}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := DecodeParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SchemaError", err)
	}
}

func TestParquetGarbage(t *testing.T) {
	data := []byte("price,odometer\n1,2\n")
	if _, err := DecodeParquet(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for non-parquet content")
	}
}

func TestParquetNonFiniteCellsAreMissing(t *testing.T) {
	inf, negInf, nan, ok := math.Inf(1), math.Inf(-1), math.NaN(), 7000.0
	rows := []parquetListing{
		{Price: &inf, Odometer: &ok},
		{Price: &ok, Odometer: &negInf},
		{Price: &nan},
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := DecodeParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("DecodeParquet: %v", err)
	}
	if out[0].Price.Valid || !out[0].Odometer.Valid {
		t.Errorf("row 0: got %+v, want +Inf price missing and odometer kept", out[0])
	}
	if out[1].Odometer.Valid {
		t.Errorf("row 1: -Inf odometer should be missing, got %+v", out[1].Odometer)
	}
	if out[2].Price.Valid {
		t.Errorf("row 2: NaN price should be missing, got %+v", out[2].Price)
	}
}
