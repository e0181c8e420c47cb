package services

import (
	"database/sql"
	"strings"
	"unicode"

	"car-dashboard/models"
	"car-dashboard/utils"
)

// Cleaner normalises freshly loaded listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// CleanStats counts what Clean changed.
type CleanStats struct {
	Rows            int
	NegativeCleared int
	TextNormalised  int
}

// Clean returns a normalised copy of raw:
//   - model has surrounding whitespace stripped and inner runs collapsed
//   - type is trimmed and lowercased so "SUV" and "suv " group together
//   - negative price or odometer values become missing
//
// raw itself is left untouched.
func (c *Cleaner) Clean(raw []models.Listing) ([]models.Listing, CleanStats) {
	stats := CleanStats{Rows: len(raw)}
	result := make([]models.Listing, len(raw))

	for i, l := range raw {
		model := normaliseText(l.Model)
		kind := normaliseType(l.Type)
		if model != l.Model || kind != l.Type {
			stats.TextNormalised++
		}
		l.Model, l.Type = model, kind

		if clearNegative(&l.Price) {
			stats.NegativeCleared++
		}
		if clearNegative(&l.Odometer) {
			stats.NegativeCleared++
		}
		result[i] = l
	}

	if stats.NegativeCleared > 0 {
		c.logger.Warn("[cleaner] Cleared %d negative price/odometer values", stats.NegativeCleared)
	}
	c.logger.Debug("[cleaner] Cleaned %d listings (%d text fields normalised)",
		stats.Rows, stats.TextNormalised)
	return result, stats
}

func clearNegative(v *sql.NullFloat64) bool {
	if v.Valid && v.Float64 < 0 {
		*v = sql.NullFloat64{}
		return true
	}
	return false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseType(s string) string {
	return strings.ToLower(normaliseText(s))
}
