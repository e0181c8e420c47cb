package storage

import (
	"database/sql"
	"fmt"
	"io"
	"math"

	"github.com/parquet-go/parquet-go"

	"car-dashboard/models"
)

// parquetListing is the on-disk row layout. Every column is optional so that
// null cells decode as missing values.
type parquetListing struct {
	Price     *float64 `parquet:"price,optional"`
	Odometer  *float64 `parquet:"odometer,optional"`
	ModelYear *int64   `parquet:"model_year,optional"`
	Model     *string  `parquet:"model,optional"`
	Type      *string  `parquet:"type,optional"`
}

// DecodeParquet reads every row of a Parquet listings file.
// The file must contain the price, odometer, model_year, model and type columns.
func DecodeParquet(r io.ReaderAt, size int64) ([]models.Listing, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	schema := file.Schema()
	for _, f := range models.Fields {
		if _, ok := schema.Lookup(string(f)); !ok {
			return nil, &SchemaError{Column: string(f), Msg: "required column missing"}
		}
	}

	rows, err := parquet.Read[parquetListing](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	listings := make([]models.Listing, len(rows))
	for i, row := range rows {
		listings[i] = row.toListing()
	}
	return listings, nil
}

func (p parquetListing) toListing() models.Listing {
	var l models.Listing
	l.Price = nullFloat(p.Price)
	l.Odometer = nullFloat(p.Odometer)
	if p.ModelYear != nil {
		l.ModelYear = models.Year(*p.ModelYear)
	}
	if p.Model != nil {
		l.Model = *p.Model
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	return l
}

// nullFloat treats null, NaN and infinite cells as missing, like parseNumber.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return sql.NullFloat64{}
	}
	return models.Float(*v)
}

// toParquet is the inverse of toListing.
func toParquet(l models.Listing) parquetListing {
	var p parquetListing
	if l.Price.Valid {
		v := l.Price.Float64
		p.Price = &v
	}
	if l.Odometer.Valid {
		v := l.Odometer.Float64
		p.Odometer = &v
	}
	if l.ModelYear.Valid {
		v := l.ModelYear.Int64
		p.ModelYear = &v
	}
	model, typ := l.Model, l.Type
	p.Model, p.Type = &model, &typ
	return p
}
