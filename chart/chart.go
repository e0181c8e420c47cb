// Package chart renders dashboard sections as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"car-dashboard/models"
)

var (
	purple     = color.RGBA{R: 0x6a, G: 0x30, B: 0x93, A: 0xff}
	aquamarine = color.RGBA{R: 0x7f, G: 0xff, B: 0xd4, A: 0xff}
	violet     = color.RGBA{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff}
)

// Size is the rendered image size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize matches a half-width dashboard column.
var DefaultSize = Size{Width: 6 * vg.Inch, Height: 4 * vg.Inch}

// Histogram renders buckets as adjacent bars.
func Histogram(title, xLabel string, buckets []models.Bucket, fill color.Color, size Size) ([]byte, error) {
	p := newPlot(title, xLabel, "count")
	if len(buckets) == 0 {
		return renderEmpty(p, size)
	}

	bins := make([]plotter.HistogramBin, len(buckets))
	for i, b := range buckets {
		lo, hi := b.Start, b.End
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
		bins[i] = plotter.HistogramBin{Min: lo, Max: hi, Weight: float64(b.Count)}
	}
	h := &plotter.Histogram{
		Bins:      bins,
		Width:     bins[0].Max - bins[0].Min,
		FillColor: fill,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(h)
	return render(p, size)
}

// PriceHistogram renders the price distribution.
func PriceHistogram(buckets []models.Bucket, size Size) ([]byte, error) {
	return Histogram("Price distribution", "price (USD)", buckets, purple, size)
}

// OdometerHistogram renders the odometer distribution.
func OdometerHistogram(buckets []models.Bucket, size Size) ([]byte, error) {
	return Histogram("Odometer distribution", "odometer", buckets, aquamarine, size)
}

// Scatter renders price against odometer, shading points by model year.
func Scatter(points []models.ScatterPoint, size Size) ([]byte, error) {
	p := newPlot("Price vs odometer", "odometer", "price (USD)")
	if len(points) == 0 {
		return renderEmpty(p, size)
	}

	xys := make(plotter.XYs, len(points))
	minYear, maxYear := int64(0), int64(0)
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.Odometer, Y: pt.Price}
		if pt.ModelYear == nil {
			continue
		}
		y := *pt.ModelYear
		if minYear == 0 || y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("chart: scatter: %w", err)
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		style := draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: vg.Points(1.5), Color: color.Gray{Y: 0x80}}
		if yr := points[i].ModelYear; yr != nil && maxYear > minYear {
			style.Color = blend(purple, aquamarine, float64(*yr-minYear)/float64(maxYear-minYear))
		}
		return style
	}
	p.Add(s)
	return render(p, size)
}

// AveragePriceByType renders one bar per vehicle type.
func AveragePriceByType(groups []models.GroupAverage, size Size) ([]byte, error) {
	labels := make([]string, len(groups))
	values := make(plotter.Values, len(groups))
	for i, g := range groups {
		labels[i], values[i] = g.Key, g.Average
	}
	return bars("Average price by vehicle type", "average price (USD)", labels, values, violet, size)
}

// TopModels renders one bar per model, most listed first.
func TopModels(counts []models.FrequencyCount, size Size) ([]byte, error) {
	labels := make([]string, len(counts))
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		labels[i], values[i] = c.Value, float64(c.Count)
	}
	return bars("Most listed models", "listings", labels, values, purple, size)
}

// bars draws one horizontal bar per label, first label at the top.
func bars(title, xLabel string, labels []string, values plotter.Values, fill color.Color, size Size) ([]byte, error) {
	p := newPlot(title, xLabel, "")
	if len(values) == 0 {
		return renderEmpty(p, size)
	}

	b, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("chart: bars: %w", err)
	}
	b.Horizontal = true
	b.Color = fill
	b.LineStyle.Width = vg.Length(0)
	p.Add(b)
	p.NominalY(labels...)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	return render(p, size)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// renderEmpty draws axes only, with the title marking the empty state.
func renderEmpty(p *plot.Plot, size Size) ([]byte, error) {
	p.Title.Text += " (no data)"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	return render(p, size)
}

func render(p *plot.Plot, size Size) ([]byte, error) {
	w, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("chart: create writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
