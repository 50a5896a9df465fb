package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// File names of the map artifacts.
func ChoroplethFile(metric string) string { return strings.ToLower(metric) + "_choropleth.html" }
func LeafletFile(metric string) string    { return strings.ToLower(metric) + "_map.html" }

// Map is everything one metric's pages need.
type Map struct {
	Metric   string
	Title    string
	Property string
	// Values holds the metric per borough.
	Values map[string]float64
	// Details holds extra metrics shown in tooltips, per borough.
	Details map[string]map[string]float64
	Policy  MissingPolicy
}

// Prepare styles fc for m. Boroughs with stats but no polygon are returned;
// under MissingAbort they are a *MissingBoroughsError.
func (m Map) Prepare(fc *geojson.FeatureCollection) ([]FeatureStyle, []string, error) {
	styles, missing := StyleFeatures(fc, m.property(), m.Values)
	if len(missing) > 0 && m.Policy == MissingAbort {
		return nil, missing, &MissingBoroughsError{Metric: m.Metric, Boroughs: missing}
	}
	return styles, missing, nil
}

func (m Map) property() string {
	if m.Property == "" {
		return DefaultProperty
	}
	return m.Property
}

// Figure builds the plotly Choroplethmapbox figure for m.
func (m Map) Figure(fc *geojson.FeatureCollection) *grob.Fig {
	boroughs := make([]string, 0, len(m.Values))
	for b := range m.Values {
		boroughs = append(boroughs, b)
	}
	sort.Strings(boroughs)
	z := make([]float64, len(boroughs))
	text := make([]string, len(boroughs))
	for i, b := range boroughs {
		z[i] = m.Values[b]
		text[i] = fmt.Sprintf("%s: %.2f", b, z[i])
	}
	scale := NewScale(m.Values)
	lat, lon := Center(fc)

	fig := &grob.Fig{
		Data: grob.Traces{
			&grob.Choroplethmapbox{
				Type:          grob.TraceTypeChoroplethmapbox,
				Name:          m.Metric,
				Geojson:       keyed(fc, m.property()),
				Featureidkey:  "properties." + m.property(),
				Locations:     boroughs,
				Z:             z,
				Zmin:          scale.Min,
				Zmax:          scale.Max,
				Colorscale:    "YlOrRd",
				Text:          text,
				Hovertemplate: "%{text}<extra></extra>",
			},
		},
		Layout: &grob.Layout{
			Title: &grob.LayoutTitle{Text: m.Title},
			Mapbox: &grob.LayoutMapbox{
				Style:  "open-street-map",
				Center: &grob.LayoutMapboxCenter{Lat: lat, Lon: lon},
				Zoom:   9,
			},
			Height: 700,
		},
	}
	return fig
}

// keyed returns fc with every feature's property set to its canonical
// borough name, so feature ids match the survey labels.
func keyed(fc *geojson.FeatureCollection, property string) *geojson.FeatureCollection {
	out := &geojson.FeatureCollection{BBox: fc.BBox, Features: make([]*geojson.Feature, 0, len(fc.Features))}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		props := make(map[string]interface{}, len(f.Properties)+1)
		for k, v := range f.Properties {
			props[k] = v
		}
		props[property] = FeatureName(f, property)
		out.Features = append(out.Features, &geojson.Feature{ID: f.ID, BBox: f.BBox, Geometry: f.Geometry, Properties: props})
	}
	return out
}

// WriteChoropleth writes the plotly page for m to path. The page is rendered
// in a scratch directory, then written atomically.
func (m Map) WriteChoropleth(fc *geojson.FeatureCollection, path string) error {
	scratch, err := os.MkdirTemp("", "nychvs-choropleth-*")
	if err != nil {
		return fmt.Errorf("write choropleth %s: %w", path, err)
	}
	defer os.RemoveAll(scratch)

	tmp := filepath.Join(scratch, filepath.Base(path))
	offline.ToHtml(m.Figure(fc), tmp)
	b, err := os.ReadFile(tmp)
	if err != nil {
		return fmt.Errorf("write choropleth %s: %w", path, err)
	}
	return utils.SafeWriteFile(path, b)
}
