package geo

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// MissingPolicy decides what happens when a borough has stats but no polygon.
type MissingPolicy string

const (
	MissingSkip  MissingPolicy = "skip"
	MissingAbort MissingPolicy = "abort"
)

// ParseMissingPolicy validates a policy name; empty means MissingSkip.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "":
		return MissingSkip, nil
	case MissingSkip, MissingAbort:
		return MissingPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid missing-borough policy %q (use skip or abort)", s)
	}
}

// MissingBoroughsError names boroughs that have stats but no polygon.
type MissingBoroughsError struct {
	Metric   string
	Boroughs []string
}

func (e *MissingBoroughsError) Error() string {
	return fmt.Sprintf("map %s: no boundary for %s", e.Metric, strings.Join(e.Boroughs, ", "))
}

// Scale maps a metric value linearly onto a continuous color ramp bound to
// the metric's min and max.
type Scale struct {
	Min, Max float64
	cmap     palette.ColorMap
}

// NewScale binds the ramp to the range of values.
func NewScale(values map[string]float64) Scale {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		lo, hi = 0, 1
	}
	s := Scale{Min: lo, Max: hi, cmap: moreland.SmoothBlueRed()}
	top := hi
	if top <= lo {
		top = lo + 1
	}
	s.cmap.SetMin(lo)
	s.cmap.SetMax(top)
	return s
}

// Color returns the hex color of v, clamped to the scale.
func (s Scale) Color(v float64) string {
	v = math.Max(s.cmap.Min(), math.Min(s.cmap.Max(), v))
	c, err := s.cmap.At(v)
	if err != nil {
		return nullFill
	}
	return hex(c)
}

// Stops returns n evenly spaced (value, color) pairs for a legend.
func (s Scale) Stops(n int) []Stop {
	if n < 2 {
		n = 2
	}
	out := make([]Stop, n)
	for i := range out {
		v := s.Min + (s.Max-s.Min)*float64(i)/float64(n-1)
		out[i] = Stop{Value: v, Color: s.Color(v)}
	}
	return out
}

// Stop is one legend entry.
type Stop struct {
	Value float64
	Color string
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

const nullFill = "#cccccc"

// FeatureStyle is the fill of one polygon. A feature without stats keeps
// FillOpacity 0 so it renders transparent.
type FeatureStyle struct {
	Borough     string
	Fill        string
	FillOpacity float64
	Value       float64
	HasValue    bool
}

// StyleFeatures styles every non-nil feature of fc, in order, by the value
// of its borough and returns the boroughs of values with no feature, sorted.
func StyleFeatures(fc *geojson.FeatureCollection, property string, values map[string]float64) ([]FeatureStyle, []string) {
	scale := NewScale(values)
	seen := map[string]bool{}
	styles := make([]FeatureStyle, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		name := FeatureName(f, property)
		st := FeatureStyle{Borough: name, Fill: nullFill}
		if v, ok := values[name]; ok {
			seen[name] = true
			st.Fill = scale.Color(v)
			st.FillOpacity = 0.7
			st.Value = v
			st.HasValue = true
		}
		styles = append(styles, st)
	}
	var missing []string
	for b := range values {
		if !seen[b] {
			missing = append(missing, b)
		}
	}
	sort.Strings(missing)
	return styles, missing
}

// FeatureName reads the borough name property of f. Names are matched
// case-insensitively against the survey labels.
func FeatureName(f *geojson.Feature, property string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	v, ok := f.Properties[property]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return canonicalBorough(s)
}

var boroughNames = []string{"Bronx", "Brooklyn", "Manhattan", "Queens", "Staten Island"}

func canonicalBorough(s string) string {
	s = strings.TrimSpace(s)
	for _, b := range boroughNames {
		if strings.EqualFold(s, b) {
			return b
		}
	}
	return s
}

// Center returns the midpoint of the bounding box of every geometry in fc,
// or lower Manhattan when fc has none.
func Center(fc *geojson.FeatureCollection) (lat, lon float64) {
	b := geom.NewBounds(geom.XY)
	n := 0
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b.Extend(f.Geometry)
		n++
	}
	if n == 0 || b.IsEmpty() {
		return 40.7128, -74.0060
	}
	return (b.Min(1) + b.Max(1)) / 2, (b.Min(0) + b.Max(0)) / 2
}
