package chart

import (
	"errors"
	"fmt"

	"car-dashboard/models"
	"car-dashboard/services"
)

// Chart names, as used in URLs and export file names.
const (
	NamePrice     = "price"
	NameOdometer  = "odometer"
	NameScatter   = "scatter"
	NameAvgPrice  = "avg-price"
	NameTopModels = "top-models"
)

// Names lists every chart in dashboard order.
var Names = []string{NamePrice, NameOdometer, NameScatter, NameAvgPrice, NameTopModels}

// ErrUnknownChart is returned for a name not in Names.
var ErrUnknownChart = errors.New("unknown chart")

// SectionsFor returns the dashboard sections a chart needs computed.
func SectionsFor(name string) (models.Sections, error) {
	switch name {
	case NamePrice, NameOdometer:
		return models.Sections{Histograms: true}, nil
	case NameScatter:
		return models.Sections{Scatter: true}, nil
	case NameAvgPrice:
		return models.Sections{AvgPriceByType: true}, nil
	case NameTopModels:
		return models.Sections{TopModels: true}, nil
	}
	return models.Sections{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// Render draws the named chart from a generated report. A section that
// failed while the report was generated is returned as an error.
func Render(name string, r *models.DashboardReport, size Size) ([]byte, error) {
	section, err := sectionKey(name)
	if err != nil {
		return nil, err
	}
	if msg, failed := r.Errors[section]; failed {
		return nil, fmt.Errorf("chart %s: %s", name, msg)
	}

	switch name {
	case NamePrice:
		return PriceHistogram(r.PriceHistogram, size)
	case NameOdometer:
		return OdometerHistogram(r.OdometerHistogram, size)
	case NameScatter:
		return Scatter(r.Scatter, size)
	case NameAvgPrice:
		return AveragePriceByType(r.AvgPriceByType, size)
	default:
		return TopModels(r.TopModels, size)
	}
}

// sectionKey maps a chart name to its key in DashboardReport.Errors.
func sectionKey(name string) (string, error) {
	switch name {
	case NamePrice:
		return services.SectionPriceHistogram, nil
	case NameOdometer:
		return services.SectionOdometerHistogram, nil
	case NameScatter:
		return services.SectionScatter, nil
	case NameAvgPrice:
		return services.SectionAvgPriceByType, nil
	case NameTopModels:
		return services.SectionTopModels, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChart, name)
}
