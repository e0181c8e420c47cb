package models

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownField is returned when a column name does not name a Listing field.
var ErrUnknownField = errors.New("unknown field")

// Field names one column of the listings dataset.
type Field string

const (
	FieldPrice     Field = "price"
	FieldOdometer  Field = "odometer"
	FieldModelYear Field = "model_year"
	FieldModel     Field = "model"
	FieldType      Field = "type"
)

// Fields lists every column in schema order.
var Fields = []Field{FieldPrice, FieldOdometer, FieldModelYear, FieldModel, FieldType}

// ParseField maps a column name to a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Numeric reports whether the field holds numbers.
func (f Field) Numeric() bool {
	return f == FieldPrice || f == FieldOdometer || f == FieldModelYear
}

// Listing is one row of the used-car dataset. Missing numeric cells have
// Valid set to false; they are never coerced to zero.
type Listing struct {
	Price     sql.NullFloat64
	Odometer  sql.NullFloat64
	ModelYear sql.NullInt64
	Model     string
	Type      string
}

// Number returns the numeric value of f and whether it is present.
// Categorical fields are never present.
func (l Listing) Number(f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return l.Price.Float64, l.Price.Valid
	case FieldOdometer:
		return l.Odometer.Float64, l.Odometer.Valid
	case FieldModelYear:
		return float64(l.ModelYear.Int64), l.ModelYear.Valid
	}
	return 0, false
}

// Text returns the value of f formatted as a label and whether it is present.
func (l Listing) Text(f Field) (string, bool) {
	switch f {
	case FieldModel:
		return l.Model, l.Model != ""
	case FieldType:
		return l.Type, l.Type != ""
	case FieldModelYear:
		if !l.ModelYear.Valid {
			return "", false
		}
		return strconv.FormatInt(l.ModelYear.Int64, 10), true
	}
	v, ok := l.Number(f)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// listingJSON is the wire shape of a Listing: missing numerics are null.
type listingJSON struct {
	Price     *float64 `json:"price"`
	Odometer  *float64 `json:"odometer"`
	ModelYear *int64   `json:"model_year"`
	Model     string   `json:"model"`
	Type      string   `json:"type"`
}

// MarshalJSON writes missing and non-finite numbers as null.
func (l Listing) MarshalJSON() ([]byte, error) {
	out := listingJSON{Model: l.Model, Type: l.Type}
	if v, ok := l.Number(FieldPrice); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		out.Price = &v
	}
	if v, ok := l.Number(FieldOdometer); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		out.Odometer = &v
	}
	if l.ModelYear.Valid {
		out.ModelYear = &l.ModelYear.Int64
	}
	return json.Marshal(out)
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	var in listingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*l = Listing{Model: in.Model, Type: in.Type}
	if in.Price != nil {
		l.Price = Float(*in.Price)
	}
	if in.Odometer != nil {
		l.Odometer = Float(*in.Odometer)
	}
	if in.ModelYear != nil {
		l.ModelYear = Year(*in.ModelYear)
	}
	return nil
}

// Float is a convenience constructor for a present numeric cell.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Year is a convenience constructor for a present model year.
func Year(y int64) sql.NullInt64 {
	return sql.NullInt64{Int64: y, Valid: true}
}

// Dataset is the full in-memory collection of listings loaded from one source.
// Listings must be treated as read-only by every caller.
type Dataset struct {
	Source   string
	Marker   string
	LoadedAt time.Time
	Listings []Listing
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Listings)
}
