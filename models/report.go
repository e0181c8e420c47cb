package models

// RangeFilter keeps rows whose Field value v satisfies Min <= v <= Max.
type RangeFilter struct {
	Field Field   `json:"field"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Bucket is one equal-width histogram interval.
type Bucket struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// GroupAverage is the mean of a value field within one group.
type GroupAverage struct {
	Key     string  `json:"key"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// FrequencyCount is how often a value occurs.
type FrequencyCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ScatterPoint is one listing projected for the price/odometer scatter plot.
type ScatterPoint struct {
	Odometer  float64 `json:"odometer"`
	Price     float64 `json:"price"`
	ModelYear *int64  `json:"model_year,omitempty"`
	Model     string  `json:"model,omitempty"`
}

// Sections toggles which parts of the dashboard are computed.
type Sections struct {
	Histograms     bool `json:"histograms"`
	Scatter        bool `json:"scatter"`
	AvgPriceByType bool `json:"avg_price_by_type"`
	TopModels      bool `json:"top_models"`
	FullView       bool `json:"full_view"`
}

// DashboardReport holds every computed section for one set of filter parameters.
type DashboardReport struct {
	Source        string        `json:"source"`
	TotalListings int           `json:"total_listings"`
	Filtered      int           `json:"filtered"`
	NoData        bool          `json:"no_data"`
	Filters       []RangeFilter `json:"filters"`
	Sections      Sections      `json:"sections"`

	PriceHistogram    []Bucket         `json:"price_histogram,omitempty"`
	OdometerHistogram []Bucket         `json:"odometer_histogram,omitempty"`
	Scatter           []ScatterPoint   `json:"scatter,omitempty"`
	AvgPriceByType    []GroupAverage   `json:"avg_price_by_type,omitempty"`
	TopModels         []FrequencyCount `json:"top_models,omitempty"`
	// Rows is the full filtered view, present only when Sections.FullView is on.
	Rows []Listing `json:"rows,omitempty"`

	// Errors maps a section name to the failure that prevented it from rendering.
	Errors map[string]string `json:"errors,omitempty"`
}
