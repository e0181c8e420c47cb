package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"car-dashboard/cache"
	"car-dashboard/chart"
	"car-dashboard/models"
	"car-dashboard/services"
	"car-dashboard/storage"
	"car-dashboard/utils"
)

// DatasetLoader returns the current dataset for a source.
type DatasetLoader interface {
	Load(ctx context.Context, source string) (*models.Dataset, error)
	Invalidate(source string)
}

type Controller interface {
	Summary(c *gin.Context)
	Listings(c *gin.Context)
	ListingsCSV(c *gin.Context)
	Chart(c *gin.Context)
	Reload(c *gin.Context)
	Health(c *gin.Context)
	Index(c *gin.Context)
}

// Options configures a Controller.
type Options struct {
	Source    string
	CacheTTL  time.Duration
	ChartSize chart.Size
}

type controller struct {
	loader    DatasetLoader
	dashboard *services.DashboardService
	cache     cache.Cache
	logger    *utils.Logger
	opts      Options
}

func NewController(loader DatasetLoader, dashboard *services.DashboardService, c cache.Cache, logger *utils.Logger, opts Options) Controller {
	if c == nil {
		c = cache.Noop{}
	}
	if opts.ChartSize.Width == 0 || opts.ChartSize.Height == 0 {
		opts.ChartSize = chart.DefaultSize
	}
	return &controller{loader: loader, dashboard: dashboard, cache: c, logger: logger, opts: opts}
}

type listingPage struct {
	Source   string               `json:"source"`
	Total    int                  `json:"total"`
	Filters  []models.RangeFilter `json:"filters"`
	Listings []models.Listing     `json:"listings"`
}

func (c *controller) Summary(ctx *gin.Context) {
	q, err := parseQuery(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ds, ok := c.load(ctx)
	if !ok {
		return
	}

	key := cache.Key("summary", ds.Source, ds.Marker, ctx.Request.URL.Query().Encode())
	if body, hit := c.cached(ctx, key); hit {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	body, err := json.Marshal(c.dashboard.Generate(ds, q))
	if err != nil {
		c.logger.Error("[rest] Encode summary: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode summary"})
		return
	}
	c.store(ctx, key, body)
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (c *controller) Listings(ctx *gin.Context) {
	q, err := parseQuery(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ds, ok := c.load(ctx)
	if !ok {
		return
	}

	rows, filters := c.dashboard.Filter(ds, q)
	page := &listingPage{
		Source:   ds.Source,
		Total:    len(rows),
		Filters:  filters,
		Listings: rows,
	}
	if page.Filters == nil {
		page.Filters = []models.RangeFilter{}
	}
	if page.Listings == nil {
		page.Listings = []models.Listing{}
	}
	ctx.JSON(http.StatusOK, page)
}

func (c *controller) ListingsCSV(ctx *gin.Context) {
	q, err := parseQuery(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ds, ok := c.load(ctx)
	if !ok {
		return
	}

	rows, _ := c.dashboard.Filter(ds, q)
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="listings.csv"`)
	ctx.Status(http.StatusOK)

	w, err := storage.NewCSVWriter(ctx.Writer)
	if err == nil {
		err = w.Write(rows)
	}
	if err != nil {
		c.logger.Error("[rest] Stream CSV: %v", err)
	}
}

func (c *controller) Chart(ctx *gin.Context) {
	name := ctx.Param("name")
	sections, err := chart.SectionsFor(name)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	q, err := parseQuery(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Sections = sections

	ds, ok := c.load(ctx)
	if !ok {
		return
	}

	key := cache.Key("chart", name, ds.Source, ds.Marker, ctx.Request.URL.Query().Encode())
	if body, hit := c.cached(ctx, key); hit {
		ctx.Data(http.StatusOK, "image/png", body)
		return
	}

	body, err := chart.Render(name, c.dashboard.Generate(ds, q), c.opts.ChartSize)
	if err != nil {
		c.logger.Error("[rest] Render chart %s: %v", name, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.store(ctx, key, body)
	ctx.Data(http.StatusOK, "image/png", body)
}

// Reload drops the cached dataset and reads the source again.
func (c *controller) Reload(ctx *gin.Context) {
	c.loader.Invalidate(c.opts.Source)
	ds, ok := c.load(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"source": ds.Source, "listings": ds.Len(), "loaded_at": ds.LoadedAt})
}

func (c *controller) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// load fetches the dataset and writes the error response itself when it
// cannot. Nothing partial is rendered on failure.
func (c *controller) load(ctx *gin.Context) (*models.Dataset, bool) {
	ds, err := c.loader.Load(ctx.Request.Context(), c.opts.Source)
	if err == nil {
		return ds, true
	}
	if errors.Is(err, storage.ErrDataUnavailable) {
		c.logger.Warn("[rest] %v", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}
	c.logger.Error("[rest] Load %s: %v", c.opts.Source, err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load data"})
	return nil, false
}

// cached treats backend errors as misses.
func (c *controller) cached(ctx *gin.Context, key string) ([]byte, bool) {
	body, hit, err := c.cache.Get(ctx.Request.Context(), key)
	if err != nil {
		c.logger.Warn("[rest] Cache get: %v", err)
		return nil, false
	}
	return body, hit
}

func (c *controller) store(ctx *gin.Context, key string, body []byte) {
	if err := c.cache.Set(ctx.Request.Context(), key, body, c.opts.CacheTTL); err != nil {
		c.logger.Warn("[rest] Cache set: %v", err)
	}
}

var boundParams = []struct {
	field models.Field
	name  string
}{
	{models.FieldModelYear, "year"},
	{models.FieldPrice, "price"},
	{models.FieldOdometer, "odometer"},
}

// parseQuery reads filter bounds and section toggles. Every section except
// the full view is on unless switched off.
func parseQuery(ctx *gin.Context) (services.Query, error) {
	q := services.Query{Bounds: make(map[models.Field]services.Bound)}

	for _, p := range boundParams {
		var b services.Bound
		var err error
		if b.Min, err = optionalFloat(ctx, p.name+"_min"); err != nil {
			return q, err
		}
		if b.Max, err = optionalFloat(ctx, p.name+"_max"); err != nil {
			return q, err
		}
		if b.Min != nil || b.Max != nil {
			q.Bounds[p.field] = b
		}
	}

	toggles := []struct {
		name string
		dst  *bool
		def  bool
	}{
		{"histograms", &q.Sections.Histograms, true},
		{"scatter", &q.Sections.Scatter, true},
		{"avg_price", &q.Sections.AvgPriceByType, true},
		{"top_models", &q.Sections.TopModels, true},
		{"full_view", &q.Sections.FullView, false},
	}
	for _, t := range toggles {
		*t.dst = t.def
		raw := ctx.Query(t.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("failed to parse %s: %s", t.name, err)
		}
		*t.dst = v
	}

	if raw := ctx.Query("buckets"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			return q, fmt.Errorf("buckets must be an integer between 1 and 1000, got %q", raw)
		}
		q.Buckets = n
	}
	return q, nil
}

func optionalFloat(ctx *gin.Context, name string) (*float64, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %s", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s must be a finite number", name)
	}
	return &v, nil
}
