package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

var leafletPage = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { background: #fff; padding: 6px 8px; font: 12px sans-serif; line-height: 18px; }
.legend i { width: 18px; height: 18px; float: left; margin-right: 6px; opacity: 0.7; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Lat}}, {{.Lon}}], {{.Zoom}});
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var boundaries = {{.GeoJSON}};
L.geoJSON(boundaries, {
  style: function (f) {
    return {fillColor: f.properties._fill, fillOpacity: f.properties._fill_opacity, color: '#555', weight: 1};
  },
  onEachFeature: function (f, layer) {
    if (f.properties._tooltip) { layer.bindTooltip(f.properties._tooltip); }
  }
}).addTo(map);
var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = {{.LegendHTML}};
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

type leafletData struct {
	Title      string
	Lat, Lon   float64
	Zoom       int
	GeoJSON    template.JS
	LegendHTML string
}

// WriteLeaflet writes a Leaflet page for m to path. Each feature carries its
// fill and a tooltip listing the borough's metrics.
func (m Map) WriteLeaflet(fc *geojson.FeatureCollection, styles []FeatureStyle, path string) error {
	out := keyed(fc, m.property())
	for i, f := range out.Features {
		if i >= len(styles) {
			break
		}
		st := styles[i]
		f.Properties["_fill"] = st.Fill
		f.Properties["_fill_opacity"] = st.FillOpacity
		if st.HasValue {
			f.Properties["_tooltip"] = m.tooltip(st)
		}
	}
	gj, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode boundaries: %w", err)
	}
	lat, lon := Center(fc)
	data := leafletData{
		Title:      m.Title,
		Lat:        lat,
		Lon:        lon,
		Zoom:       10,
		GeoJSON:    template.JS(gj),
		LegendHTML: m.legend(),
	}
	var buf bytes.Buffer
	if err := leafletPage.Execute(&buf, data); err != nil {
		return fmt.Errorf("render map %s: %w", path, err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func (m Map) tooltip(st FeatureStyle) string {
	var b bytes.Buffer
	template.HTMLEscape(&b, []byte(st.Borough))
	fmt.Fprintf(&b, "<br>%s: %.2f", template.HTMLEscapeString(m.Metric), st.Value)
	details := m.Details[st.Borough]
	keys := make([]string, 0, len(details))
	for k := range details {
		if k != m.Metric {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "<br>%s: %.2f", template.HTMLEscapeString(k), details[k])
	}
	return b.String()
}

func (m Map) legend() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<b>%s</b><br>", template.HTMLEscapeString(m.Metric))
	for _, s := range NewScale(m.Values).Stops(5) {
		fmt.Fprintf(&b, "<i style=\"background:%s\"></i>%.2f<br>", s.Color, s.Value)
	}
	b.WriteString("<i style=\"background:transparent;border:1px solid #555\"></i>no data")
	return b.String()
}
