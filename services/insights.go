package services

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"car-dashboard/models"
	"car-dashboard/utils"
)

// Section names used as keys in DashboardReport.Errors.
const (
	SectionPriceHistogram    = "price_histogram"
	SectionOdometerHistogram = "odometer_histogram"
	SectionScatter           = "scatter"
	SectionAvgPriceByType    = "avg_price_by_type"
	SectionTopModels         = "top_models"
	SectionFullView          = "full_view"
)

// Bound is an optional lower and upper limit for one numeric field.
type Bound struct {
	Min *float64
	Max *float64
}

// Query is one interaction's worth of dashboard parameters.
type Query struct {
	Bounds   map[models.Field]Bound
	Sections models.Sections
	// Buckets overrides the configured histogram bucket count when > 0.
	Buckets int
}

// DashboardConfig holds presentation defaults.
type DashboardConfig struct {
	HistogramBuckets int
	ScatterSample    int
	TopModels        int
	// Defaults is the default window per field. A zero limit means the
	// observed min/max of the dataset.
	Defaults map[models.Field]Bound
}

// DashboardService computes the dashboard sections for a dataset.
type DashboardService struct {
	logger *utils.Logger
	cfg    DashboardConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDashboardService creates a service. rng may be nil to use the global
// random source.
func NewDashboardService(logger *utils.Logger, cfg DashboardConfig, rng *rand.Rand) *DashboardService {
	if cfg.HistogramBuckets <= 0 {
		cfg.HistogramBuckets = 50
	}
	if cfg.TopModels <= 0 {
		cfg.TopModels = 10
	}
	return &DashboardService{logger: logger, cfg: cfg, rng: rng}
}

// filterOrder is the order in which bounds are reported. Filtering itself is
// order-independent.
var filterOrder = []models.Field{models.FieldModelYear, models.FieldPrice, models.FieldOdometer}

// ResolveFilters turns optional bounds into concrete range filters. A field
// gets a filter only if the query or the configured defaults mention it; a
// missing side falls back to the default window, then to the observed range.
func (s *DashboardService) ResolveFilters(rows []models.Listing, bounds map[models.Field]Bound) []models.RangeFilter {
	var filters []models.RangeFilter
	for _, f := range filterOrder {
		b, given := bounds[f]
		def, hasDefault := s.cfg.Defaults[f]
		if given && b.Min == nil && b.Max == nil {
			given = false
		}
		if hasDefault && def.Min == nil && def.Max == nil {
			hasDefault = false
		}
		if !given && !hasDefault {
			continue
		}

		lo, hi, ok := ObservedRange(rows, f)
		if !ok {
			lo, hi = 0, 0
		}
		if hasDefault {
			if def.Min != nil {
				lo = *def.Min
			}
			if def.Max != nil {
				hi = *def.Max
			}
		}
		if given {
			if b.Min != nil {
				lo = *b.Min
			}
			if b.Max != nil {
				hi = *b.Max
			}
		}
		filters = append(filters, models.RangeFilter{Field: f, Min: lo, Max: hi})
	}
	return filters
}

// Filter applies the query bounds to the dataset.
func (s *DashboardService) Filter(ds *models.Dataset, q Query) ([]models.Listing, []models.RangeFilter) {
	filters := s.ResolveFilters(ds.Listings, q.Bounds)
	return ApplyFilters(ds.Listings, filters...), filters
}

// Generate computes every section enabled in q. A failure in one section is
// recorded in report.Errors and does not stop the others.
func (s *DashboardService) Generate(ds *models.Dataset, q Query) *models.DashboardReport {
	rows, filters := s.Filter(ds, q)

	report := &models.DashboardReport{
		Source:        ds.Source,
		TotalListings: ds.Len(),
		Filtered:      len(rows),
		NoData:        len(rows) == 0,
		Filters:       filters,
		Sections:      q.Sections,
	}
	if report.Filters == nil {
		report.Filters = []models.RangeFilter{}
	}

	buckets := s.cfg.HistogramBuckets
	if q.Buckets > 0 {
		buckets = q.Buckets
	}

	if q.Sections.Histograms {
		s.run(report, SectionPriceHistogram, func() error {
			b := HistogramBuckets(rows, models.FieldPrice, buckets)
			if err := checkBuckets(b); err != nil {
				return err
			}
			report.PriceHistogram = b
			return nil
		})
		s.run(report, SectionOdometerHistogram, func() error {
			b := HistogramBuckets(rows, models.FieldOdometer, buckets)
			if err := checkBuckets(b); err != nil {
				return err
			}
			report.OdometerHistogram = b
			return nil
		})
	}
	if q.Sections.Scatter {
		s.run(report, SectionScatter, func() error {
			report.Scatter = scatterPoints(s.sample(rows))
			return nil
		})
	}
	if q.Sections.AvgPriceByType {
		s.run(report, SectionAvgPriceByType, func() error {
			groups := GroupAverage(rows, models.FieldType, models.FieldPrice, true)
			for _, g := range groups {
				if err := checkFinite(g.Key, g.Average); err != nil {
					return err
				}
			}
			report.AvgPriceByType = groups
			return nil
		})
	}
	if q.Sections.TopModels {
		s.run(report, SectionTopModels, func() error {
			report.TopModels = TopNByFrequency(rows, models.FieldModel, s.cfg.TopModels)
			return nil
		})
	}
	if q.Sections.FullView {
		report.Rows = rows
	}

	s.logger.Debug("[dashboard] %d/%d rows after %d filters, %d section errors",
		report.Filtered, report.TotalListings, len(filters), len(report.Errors))
	return report
}

// run computes one section. A returned error or a panic is recorded under
// section in report.Errors and leaves that section empty.
func (s *DashboardService) run(report *models.DashboardReport, section string, fn func() error) {
	fail := func(reason any) {
		if report.Errors == nil {
			report.Errors = make(map[string]string)
		}
		report.Errors[section] = fmt.Sprint(reason)
		s.logger.Error("[dashboard] Section %s failed: %v", section, reason)
	}
	defer func() {
		if r := recover(); r != nil {
			fail(r)
		}
	}()
	if err := fn(); err != nil {
		fail(err)
	}
}

// checkFinite rejects NaN and infinite values, which cannot be encoded as JSON.
func checkFinite(label string, vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value %v for %s", v, label)
		}
	}
	return nil
}

func checkBuckets(buckets []models.Bucket) error {
	for i, b := range buckets {
		if err := checkFinite(fmt.Sprintf("bucket %d", i), b.Start, b.End); err != nil {
			return err
		}
	}
	return nil
}

// sample reduces rows to the configured scatter volume. It is applied after
// filtering and only feeds the scatter display.
func (s *DashboardService) sample(rows []models.Listing) []models.Listing {
	if s.cfg.ScatterSample <= 0 {
		return rows
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sample(rows, s.cfg.ScatterSample, s.rng)
}

func scatterPoints(rows []models.Listing) []models.ScatterPoint {
	points := make([]models.ScatterPoint, 0, len(rows))
	for _, l := range rows {
		if !l.Price.Valid || !l.Odometer.Valid || checkFinite("point", l.Price.Float64, l.Odometer.Float64) != nil {
			continue
		}
		p := models.ScatterPoint{Odometer: l.Odometer.Float64, Price: l.Price.Float64, Model: l.Model}
		if l.ModelYear.Valid {
			y := l.ModelYear.Int64
			p.ModelYear = &y
		}
		points = append(points, p)
	}
	return points
}

// Print writes a terminal rendering of the report to w.
func (s *DashboardService) Print(w io.Writer, r *models.DashboardReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚗 USED CAR LISTINGS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Source            : %s\n", r.Source)
	fmt.Fprintf(w, "  Total listings    : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  After filters     : \033[1m%d\033[0m\n", r.Filtered)
	for _, f := range r.Filters {
		fmt.Fprintf(w, "  %-17s : %.0f – %.0f\n", f.Field, f.Min, f.Max)
	}
	fmt.Fprintln(w)

	if r.Sections.Histograms {
		printHistogram(w, "Price Distribution", r.PriceHistogram, thin)
		printHistogram(w, "Odometer Distribution", r.OdometerHistogram, thin)
	}

	if r.Sections.AvgPriceByType {
		fmt.Fprintf(w, "\033[1;33m  Average Price by Vehicle Type\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		if len(r.AvgPriceByType) == 0 {
			fmt.Fprintf(w, "  No data\n")
		}
		for _, g := range r.AvgPriceByType {
			fmt.Fprintf(w, "  %-20s \033[1;32m$%10.2f\033[0m (%d)\n", truncate(g.Key, 20), g.Average, g.Count)
		}
		fmt.Fprintln(w)
	}

	if r.Sections.TopModels {
		fmt.Fprintf(w, "\033[1;33m  Most Listed Models\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		if len(r.TopModels) == 0 {
			fmt.Fprintf(w, "  No data\n")
		}
		for i, m := range r.TopModels {
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-30s %d\n", i+1, truncate(m.Value, 30), m.Count)
		}
		fmt.Fprintln(w)
	}

	failed := make([]string, 0, len(r.Errors))
	for section := range r.Errors {
		failed = append(failed, section)
	}
	sort.Strings(failed)
	for _, section := range failed {
		fmt.Fprintf(w, "  \033[1;31m%s failed: %s\033[0m\n", section, r.Errors[section])
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printHistogram(w io.Writer, title string, buckets []models.Bucket, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(buckets) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}
	peak := 0
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
	}
	for _, b := range buckets {
		bar := 0
		if peak > 0 {
			bar = b.Count * 30 / peak
		}
		fmt.Fprintf(w, "  %10.0f – %-10.0f %s (%d)\n", b.Start, b.End, strings.Repeat("█", bar), b.Count)
	}
	fmt.Fprintln(w)
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
