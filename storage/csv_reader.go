package storage

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"car-dashboard/models"
)

var (
	// numberRegexp matches a plain or currency-formatted number such as "$5,000.50".
	numberRegexp = regexp.MustCompile(`^[-+]?\$?\s*[\d,]*\.?\d+(?:[eE][-+]?\d+)?$`)

	missingTokens = map[string]struct{}{
		"": {}, "nan": {}, "null": {}, "na": {}, "n/a": {}, "none": {},
	}
)

// DecodeCSV parses a delimited listings table. The first record must be a
// header naming at least price, odometer, model_year, model and type, in any
// order; other columns are ignored. The delimiter is sniffed from the header
// line among ',', ';' and tab.
func DecodeCSV(r io.Reader) ([]models.Listing, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Msg: "empty file, header row expected"}
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}

		l, err := decodeRecord(rec, cols, line)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func columnIndexes(header []string) (map[models.Field]int, error) {
	cols := make(map[models.Field]int, len(models.Fields))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		f, err := models.ParseField(name)
		if err != nil {
			continue
		}
		if _, dup := cols[f]; !dup {
			cols[f] = i
		}
	}
	for _, f := range models.Fields {
		if _, ok := cols[f]; !ok {
			return nil, &SchemaError{Column: string(f), Msg: "required column missing"}
		}
	}
	return cols, nil
}

func decodeRecord(rec []string, cols map[models.Field]int, line int) (models.Listing, error) {
	cell := func(f models.Field) string {
		i := cols[f]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var l models.Listing
	var err error

	if l.Price, err = parseNumber(cell(models.FieldPrice)); err != nil {
		return l, &SchemaError{Line: line, Column: string(models.FieldPrice), Msg: err.Error()}
	}
	if l.Odometer, err = parseNumber(cell(models.FieldOdometer)); err != nil {
		return l, &SchemaError{Line: line, Column: string(models.FieldOdometer), Msg: err.Error()}
	}
	year, err := parseNumber(cell(models.FieldModelYear))
	if err != nil {
		return l, &SchemaError{Line: line, Column: string(models.FieldModelYear), Msg: err.Error()}
	}
	if year.Valid {
		if year.Float64 != math.Trunc(year.Float64) {
			return l, &SchemaError{Line: line, Column: string(models.FieldModelYear), Msg: "not a whole year"}
		}
		l.ModelYear = models.Year(int64(year.Float64))
	}
	l.Model = cell(models.FieldModel)
	l.Type = cell(models.FieldType)
	return l, nil
}

// parseNumber converts a cell to a number. Missing tokens yield an invalid
// value; anything else that is not a number is an error.
func parseNumber(raw string) (v sql.NullFloat64, err error) {
	if _, missing := missingTokens[strings.ToLower(raw)]; missing {
		return v, nil
	}
	if !numberRegexp.MatchString(raw) {
		return v, fmt.Errorf("not a number: %q", raw)
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return v, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return v, nil
	}
	return models.Float(f), nil
}

func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(first, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
