package services

import (
	"bytes"
	"testing"

	"car-dashboard/models"
	"car-dashboard/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(&bytes.Buffer{}, true) }

func TestCleanerNormalisesText(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		model, kind         string
		wantModel, wantKind string
	}{
		{"  honda   civic ", "Sedan", "honda civic", "sedan"},
		{"ford\tf-150", " pickup ", "ford f-150", "pickup"},
		{"bmw x5", "SUV", "bmw x5", "suv"},
		{"", "", "", ""},
	}

	for _, tt := range tests {
		out, _ := c.Clean([]models.Listing{{Model: tt.model, Type: tt.kind}})
		if out[0].Model != tt.wantModel || out[0].Type != tt.wantKind {
			t.Errorf("Clean(%q, %q) = %q, %q; want %q, %q",
				tt.model, tt.kind, out[0].Model, out[0].Type, tt.wantModel, tt.wantKind)
		}
	}
}

func TestCleanerClearsNegativeNumbers(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.Listing{
		{Price: models.Float(-1), Odometer: models.Float(1000)},
		{Price: models.Float(0), Odometer: models.Float(-5)},
	}

	out, stats := c.Clean(raw)
	if out[0].Price.Valid {
		t.Errorf("negative price should be missing, got %+v", out[0].Price)
	}
	if !out[1].Price.Valid || out[1].Price.Float64 != 0 {
		t.Errorf("zero price should be kept, got %+v", out[1].Price)
	}
	if out[1].Odometer.Valid {
		t.Errorf("negative odometer should be missing, got %+v", out[1].Odometer)
	}
	if stats.NegativeCleared != 2 {
		t.Errorf("NegativeCleared: got %d, want 2", stats.NegativeCleared)
	}
}

func TestCleanerDoesNotMutateInput(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.Listing{{Price: models.Float(-1), Model: " civic ", Type: "SEDAN"}}

	c.Clean(raw)
	if !raw[0].Price.Valid || raw[0].Model != " civic " || raw[0].Type != "SEDAN" {
		t.Errorf("input was modified: %+v", raw[0])
	}
}
