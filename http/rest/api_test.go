package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"car-dashboard/cache"
	"car-dashboard/chart"
	"car-dashboard/models"
	"car-dashboard/services"
	"car-dashboard/storage"
	"car-dashboard/utils"
)

const testCSV = `price,odometer,model_year,model,type
5000,100000,2015,civic,sedan
30000,20000,2020,f-150,pickup
,50000,2018,accord,sedan
12000,60000,2016,civic,sedan
`

type countingCache struct {
	cache.Cache
	gets, hits, sets int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	v, ok, err := c.Cache.Get(ctx, key)
	if ok {
		c.hits++
	}
	return v, ok, err
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return c.Cache.Set(ctx, key, value, ttl)
}

func newTestServer(t *testing.T, source string, c cache.Cache) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewLoggerTo(&bytes.Buffer{}, true)
	loader := services.NewLoader(logger, storage.Options{})
	t.Cleanup(func() { loader.Close() })

	dashboard := services.NewDashboardService(logger, services.DashboardConfig{HistogramBuckets: 4}, nil)
	ctrl := NewController(loader, dashboard, c, logger, Options{
		Source:    source,
		CacheTTL:  time.Minute,
		ChartSize: chart.Size{Width: 200, Height: 150},
	})
	return NewRouter(ctrl, logger)
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSummary(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", w.Code, w.Body)
	}
	var report models.DashboardReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.TotalListings != 4 || report.Filtered != 4 {
		t.Errorf("counts: got %d/%d, want 4/4", report.Filtered, report.TotalListings)
	}
	if len(report.PriceHistogram) != 4 {
		t.Errorf("price buckets: got %d, want 4", len(report.PriceHistogram))
	}
	if len(report.TopModels) == 0 || report.TopModels[0].Value != "civic" || report.TopModels[0].Count != 2 {
		t.Errorf("top models: got %+v, want civic first with 2", report.TopModels)
	}
	if len(report.AvgPriceByType) != 2 || report.AvgPriceByType[0].Key != "sedan" {
		t.Errorf("avg price by type: got %+v, want sedan first", report.AvgPriceByType)
	}
}

func TestSummaryFiltersAndToggles(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/summary?price_min=10000&histograms=false&scatter=0")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", w.Code, w.Body)
	}
	var report models.DashboardReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Filtered != 2 {
		t.Errorf("filtered: got %d, want 2", report.Filtered)
	}
	if report.PriceHistogram != nil || report.Scatter != nil {
		t.Errorf("disabled sections were computed: %+v", report)
	}
	if len(report.TopModels) != 2 || report.TopModels[0].Value != "f-150" {
		t.Errorf("top models: got %+v, want f-150 first", report.TopModels)
	}
}

func TestSummaryNoData(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/summary?price_min=1000000")
	var report models.DashboardReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.NoData || report.Filtered != 0 {
		t.Errorf("no data: got NoData=%v filtered=%d", report.NoData, report.Filtered)
	}
}

func TestBadParameters(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	for _, target := range []string{
		"/api/summary?price_min=cheap",
		"/api/summary?year_max=NaN",
		"/api/summary?price_max=Inf",
		"/api/summary?odometer_min=-infinity",
		"/api/summary?scatter=maybe",
		"/api/summary?buckets=0",
		"/api/listings?odometer_min=x",
	} {
		if w := get(r, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
		}
	}
}

func TestDataUnavailable(t *testing.T) {
	r := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"), nil)

	for _, target := range []string{"/api/summary", "/api/listings", "/api/charts/price"} {
		w := get(r, target)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: got %d, want 503", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), "data unavailable") {
			t.Errorf("%s: body %q does not name the failure", target, w.Body)
		}
	}
}

func TestListings(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/listings?year_min=2016")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var page listingPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 3 || len(page.Listings) != 3 {
		t.Fatalf("total: got %d, want 3", page.Total)
	}
	for _, l := range page.Listings {
		if l.Model == "accord" && l.Price.Valid {
			t.Errorf("missing price decoded as %v", l.Price.Float64)
		}
	}
}

func TestListingsCSV(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/listings.csv?odometer_max=60000")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: got %d, want header + 3 rows:\n%s", len(lines), w.Body)
	}
	if lines[0] != "price,odometer,model_year,model,type" {
		t.Errorf("header: got %q", lines[0])
	}
	if lines[2] != ",50000,2018,accord,sedan" {
		t.Errorf("missing price row: got %q", lines[2])
	}
}

func TestChart(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	for _, name := range chart.Names {
		w := get(r, "/api/charts/"+name)
		if w.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", name, w.Code)
			continue
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: content type %q", name, ct)
		}
		if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
			t.Errorf("%s: body is not a PNG", name)
		}
	}

	if w := get(r, "/api/charts/pie"); w.Code != http.StatusNotFound {
		t.Errorf("unknown chart: got %d, want 404", w.Code)
	}
}

func TestResponsesAreCached(t *testing.T) {
	c := &countingCache{Cache: cache.NewMemory(16)}
	r := newTestServer(t, writeCSV(t), c)

	first := get(r, "/api/summary?price_max=20000")
	second := get(r, "/api/summary?price_max=20000")
	if first.Body.String() != second.Body.String() {
		t.Error("cached body differs from the first response")
	}
	if c.sets != 1 || c.hits != 1 {
		t.Errorf("cache: got sets=%d hits=%d, want 1/1", c.sets, c.hits)
	}

	get(r, "/api/summary?price_max=25000")
	if c.sets != 2 {
		t.Errorf("different query: got sets=%d, want 2", c.sets)
	}
}

func TestIndexAndHealth(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/?price_min=1000")
	if w.Code != http.StatusOK {
		t.Fatalf("index: got %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "/api/charts/scatter?price_min=1000") {
		t.Errorf("index does not carry the query to chart URLs:\n%s", body)
	}

	if w := get(r, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz: got %d, want 200", w.Code)
	}
}

func TestReload(t *testing.T) {
	path := writeCSV(t)
	r := newTestServer(t, path, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reload: got %d, want 200", w.Code)
	}
	var body struct {
		Listings int `json:"listings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Listings != 4 {
		t.Errorf("listings: got %d, want 4", body.Listings)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("reload after delete: got %d, want 503", w.Code)
	}
}

func TestSummaryFullViewIncludesRows(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/api/summary?full_view=true&price_min=10000")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", w.Code, w.Body)
	}
	var report models.DashboardReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Rows) != 2 || report.Rows[0].Model != "f-150" {
		t.Errorf("rows: got %+v, want f-150 and civic", report.Rows)
	}

	w = get(r, "/api/summary?price_min=10000")
	if strings.Contains(w.Body.String(), `"rows"`) {
		t.Errorf("rows present without full_view: %s", w.Body)
	}
}

func TestIndexSectionToggles(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	body := get(r, "/?scatter=false&scatter=false&histograms=true&histograms=false").Body.String()
	if strings.Contains(body, "/api/charts/scatter") {
		t.Error("unticked scatter chart is still requested")
	}
	if !strings.Contains(body, "/api/charts/price") || !strings.Contains(body, "/api/charts/top-models") {
		t.Errorf("ticked charts missing:\n%s", body)
	}
	if !strings.Contains(body, `name="histograms" value="true" checked`) {
		t.Error("ticked histograms box is not checked")
	}
	if strings.Contains(body, `name="scatter" value="true" checked`) {
		t.Error("unticked scatter box is checked")
	}
	if strings.Contains(body, "Total vehicles") {
		t.Error("full view rendered without being requested")
	}
}

func TestIndexFullView(t *testing.T) {
	r := newTestServer(t, writeCSV(t), nil)

	w := get(r, "/?full_view=true&price_min=10000")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<strong id="total">2</strong>`) {
		t.Errorf("total vehicles missing:\n%s", body)
	}
	if !strings.Contains(body, "<td>f-150</td>") || strings.Contains(body, "<td>accord</td>") {
		t.Errorf("table does not match the filters:\n%s", body)
	}

	if w := get(r, "/?price_min=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad bound: got %d, want 400", w.Code)
	}
}
