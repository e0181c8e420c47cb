package rest

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"car-dashboard/chart"
	"car-dashboard/models"
)

// fullViewRows caps the table on the page; the CSV link carries every row.
const fullViewRows = 1000

// Each checkbox is followed by a hidden "false" so that an unticked box is
// still sent; gin's Query returns the first value.
var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"num": func(v float64, ok bool) string {
		if !ok {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Used car listings</title>
<style>
body { font-family: sans-serif; margin: 2em; }
form label { margin-right: 1em; }
.charts img { width: 48%; margin: 0.5%; border: 1px solid #ddd; }
table { border-collapse: collapse; }
td, th { padding: 2px 8px; border-bottom: 1px solid #eee; text-align: left; }
</style>
</head>
<body>
<h1>Used car listings</h1>
<form method="get" action="/">
<p>{{range .Bounds}}<label>{{.Label}} <input name="{{.Name}}_min" value="{{.Min}}" size="8"> – <input name="{{.Name}}_max" value="{{.Max}}" size="8"></label>
{{end}}</p>
<p>{{range .Toggles}}<label><input type="checkbox" name="{{.Name}}" value="true"{{if .On}} checked{{end}}><input type="hidden" name="{{.Name}}" value="false"> {{.Label}}</label>
{{end}}</p>
<button type="submit">Apply</button>
<button type="submit" name="full_view" value="true">Load full view</button>
</form>
<p><a href="/api/summary?{{.Query}}">summary</a> · <a href="/api/listings.csv?{{.Query}}">download listings</a></p>
<div class="charts">
{{range .Charts}}<img src="/api/charts/{{.}}?{{$.Query}}" alt="{{.}}">
{{end}}</div>
{{if .FullView}}<h2>Listings</h2>
<p>Total vehicles: <strong id="total">{{.Total}}</strong>{{if gt .Total (len .Rows)}} (first {{len .Rows}} shown){{end}}</p>
<table>
<tr><th>price</th><th>odometer</th><th>model_year</th><th>model</th><th>type</th></tr>
{{range .Rows}}<tr><td>{{num .Price.Float64 .Price.Valid}}</td><td>{{num .Odometer.Float64 .Odometer.Valid}}</td><td>{{if .ModelYear.Valid}}{{.ModelYear.Int64}}{{end}}</td><td>{{.Model}}</td><td>{{.Type}}</td></tr>
{{end}}</table>
{{end}}</body>
</html>
`))

type boundField struct {
	Label string
	Name  string
	Min   string
	Max   string
}

type toggleField struct {
	Label string
	Name  string
	On    bool
}

type indexPage struct {
	Bounds   []boundField
	Toggles  []toggleField
	Charts   []string
	Query    template.URL
	FullView bool
	Total    int
	Rows     []models.Listing
}

// Index serves the dashboard page. Only the charts of ticked sections are
// requested, each with the same filters; the full view is rendered inline.
func (c *controller) Index(ctx *gin.Context) {
	q, err := parseQuery(ctx)
	if err != nil {
		ctx.String(http.StatusBadRequest, err.Error())
		return
	}

	values := url.Values{}
	var page indexPage
	for _, p := range boundParams {
		b := boundField{Label: string(p.field), Name: p.name, Min: ctx.Query(p.name + "_min"), Max: ctx.Query(p.name + "_max")}
		if b.Min != "" {
			values.Set(p.name+"_min", b.Min)
		}
		if b.Max != "" {
			values.Set(p.name+"_max", b.Max)
		}
		page.Bounds = append(page.Bounds, b)
	}
	if raw := ctx.Query("buckets"); raw != "" {
		values.Set("buckets", raw)
	}
	page.Query = template.URL(values.Encode())

	page.Toggles = []toggleField{
		{"Histograms", "histograms", q.Sections.Histograms},
		{"Price vs odometer", "scatter", q.Sections.Scatter},
		{"Average price by type", "avg_price", q.Sections.AvgPriceByType},
		{"Most listed models", "top_models", q.Sections.TopModels},
	}
	for _, name := range chart.Names {
		if s, err := chart.SectionsFor(name); err == nil && sectionsOverlap(s, q.Sections) {
			page.Charts = append(page.Charts, name)
		}
	}

	if q.Sections.FullView {
		ds, ok := c.load(ctx)
		if !ok {
			return
		}
		rows, _ := c.dashboard.Filter(ds, q)
		page.FullView = true
		page.Total = len(rows)
		if len(rows) > fullViewRows {
			rows = rows[:fullViewRows]
		}
		page.Rows = rows
	}

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	if err := indexTemplate.Execute(ctx.Writer, page); err != nil {
		c.logger.Error("[rest] Render index: %v", err)
	}
}

func sectionsOverlap(a, b models.Sections) bool {
	return (a.Histograms && b.Histograms) ||
		(a.Scatter && b.Scatter) ||
		(a.AvgPriceByType && b.AvgPriceByType) ||
		(a.TopModels && b.TopModels)
}
