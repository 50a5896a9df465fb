package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// Chart size of every PNG.
var (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 5 * vg.Inch
)

// File names of the chart artifacts.
const UtilitiesChart = "utilities_by_borough.png"

// BarFile names the chart of one metric per category.
func BarFile(metric, category string) string {
	return fmt.Sprintf("%s_by_%s.png", strings.ToLower(metric), strings.ToLower(category))
}

// ScatterFile names the scatter plot of y against x.
func ScatterFile(y, x string) string {
	return fmt.Sprintf("%s_vs_%s.png", strings.ToLower(y), strings.ToLower(x))
}

// Series is one named sequence of bar heights.
type Series struct {
	Name   string
	Values []float64
}

// BarChart draws one bar per label.
func BarChart(path, title, ylabel string, labels []string, values []float64) error {
	return GroupedBars(path, title, ylabel, labels, Series{Values: values})
}

// GroupedBars draws the series side by side for every label. A legend is
// added when more than one series is drawn.
func GroupedBars(path, title, ylabel string, labels []string, series ...Series) error {
	if len(labels) == 0 || len(series) == 0 {
		return fmt.Errorf("chart %s: nothing to draw", title)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Y.Min = 0

	w := vg.Points(240 / float64(len(labels)*len(series)))
	if w < vg.Points(6) {
		w = vg.Points(6)
	}
	for i, s := range series {
		if len(s.Values) != len(labels) {
			return fmt.Errorf("chart %s: series %q has %d values for %d categories", title, s.Name, len(s.Values), len(labels))
		}
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return fmt.Errorf("chart %s: %w", title, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = w * vg.Length(float64(i)-float64(len(series)-1)/2)
		p.Add(bars)
		if len(series) > 1 {
			p.Legend.Add(s.Name, bars)
		}
	}
	p.Legend.Top = true
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return save(p, path)
}

// Scatter plots paired values of x and y.
func Scatter(path, title, xlabel, ylabel string, x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("scatter %s: %d x values for %d y values", title, len(x), len(y))
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter %s: %w", title, err)
	}
	s.GlyphStyle.Color = plotutil.Color(0)
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s, plotter.NewGrid())
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
