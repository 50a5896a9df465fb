package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
	"github.com/KaramelBytes/nychvs-cli/internal/config"
	"github.com/KaramelBytes/nychvs-cli/internal/dashboard"
	"github.com/KaramelBytes/nychvs-cli/internal/geo"
	"github.com/KaramelBytes/nychvs-cli/internal/render"
	"github.com/KaramelBytes/nychvs-cli/internal/survey"
	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// Artifact names in the output directory.
const (
	TablesFile   = "tables.txt"
	WorkbookFile = "nychvs_tables.xlsx"
)

var focus = []string{survey.ColRent, survey.ColIncome}

func (r *runner) grids() []render.Grid {
	res := r.res.Results
	var grids []render.Grid
	for _, m := range SortKeys {
		if agg, ok := res.SortedBorough[m]; ok {
			grids = append(grids, render.MeansGrid("Means by borough, sorted by "+m, agg, res.Metrics))
		}
	}
	pick := intersect(focus, res.Metrics)
	grids = append(grids,
		render.MeansGrid("Means by gender", res.Gender, pick),
		render.MeansGrid("Means by race", res.Race, pick),
		render.MeansGrid("Means by borough and gender", res.BoroughGender, pick),
		render.MeansGrid("Means by borough and race", res.BoroughRace, pick),
		render.FractionsGrid("Gender share by borough", res.Borough, survey.ColGender),
		render.FractionsGrid("Race share by borough", res.Borough, survey.ColRace),
	)
	return grids
}

func intersect(want, have []string) []string {
	var out []string
	for _, w := range want {
		if contains(have, w) {
			out = append(out, w)
		}
	}
	return out
}

func (r *runner) render(_ context.Context) error {
	grids := r.grids()
	var buf bytes.Buffer
	if err := render.WriteText(&buf, grids...); err != nil {
		return err
	}
	if _, err := io.Copy(r.opts.Stdout, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("print tables: %w", err)
	}
	if err := utils.SafeWriteFile(r.path(TablesFile), buf.Bytes()); err != nil {
		return err
	}
	r.wrote(r.path(TablesFile))
	if err := render.WriteWorkbook(r.path(WorkbookFile), grids); err != nil {
		return err
	}
	r.wrote(r.path(WorkbookFile))

	if !r.cfg.Charts.Enabled {
		return nil
	}
	return r.charts()
}

func (r *runner) charts() error {
	res := r.res.Results
	for _, m := range intersect(r.cfg.Charts.Bars, res.Metrics) {
		labels, values := res.Borough.Values(m)
		path := r.path(render.BarFile(m, "borough"))
		if err := render.BarChart(path, "Mean "+m+" by borough", m, labels, values); err != nil {
			return err
		}
		r.wrote(path)
	}
	for _, m := range intersect(focus, res.Metrics) {
		for _, g := range []struct {
			name string
			agg  *analysis.Aggregate
		}{{"gender", res.Gender}, {"race", res.Race}} {
			labels, values := g.agg.Values(m)
			path := r.path(render.BarFile(m, g.name))
			if err := render.BarChart(path, "Mean "+m+" by "+g.name, m, labels, values); err != nil {
				return err
			}
			r.wrote(path)
		}
	}
	if contains(res.Metrics, survey.ColUtilWinter) && contains(res.Metrics, survey.ColUtilSummer) {
		labels, winter := res.Borough.Values(survey.ColUtilWinter)
		_, summer := res.Borough.Values(survey.ColUtilSummer)
		path := r.path(render.UtilitiesChart)
		if err := render.GroupedBars(path, "Mean utility cost by borough", "cost", labels,
			render.Series{Name: "Winter", Values: winter},
			render.Series{Name: "Summer", Values: summer},
		); err != nil {
			return err
		}
		r.wrote(path)
	}
	for _, pair := range r.cfg.Charts.Scatter {
		y, x, err := config.SplitPair(pair)
		if err != nil {
			return err
		}
		if !contains(res.Metrics, y) || !contains(res.Metrics, x) {
			r.log.Warn("skipping scatter of uncleaned columns", slog.String("pair", pair))
			continue
		}
		ys, err := r.res.Recoded.Numbers(y)
		if err != nil {
			return err
		}
		xs, err := r.res.Recoded.Numbers(x)
		if err != nil {
			return err
		}
		path := r.path(render.ScatterFile(y, x))
		if err := render.Scatter(path, y+" vs "+x, x, y, xs, ys); err != nil {
			return err
		}
		r.wrote(path)
	}
	return nil
}

func (r *runner) source() geo.Source {
	if r.opts.Boundaries != nil {
		return r.opts.Boundaries
	}
	if r.cfg.BoundariesFile != "" {
		path, err := utils.ExpandHome(r.cfg.BoundariesFile)
		if err != nil {
			path = r.cfg.BoundariesFile
		}
		return geo.FileSource{Path: path}
	}
	return geo.HTTPSource{URL: r.cfg.BoundariesURL, Timeout: time.Duration(r.cfg.HTTPTimeoutSec) * time.Second}
}

func (r *runner) maps(ctx context.Context) error {
	if r.opts.SkipMaps || len(r.cfg.MapMetrics) == 0 {
		return nil
	}
	policy, err := geo.ParseMissingPolicy(r.cfg.Maps.OnMissing)
	if err != nil {
		return err
	}
	fc, err := r.source().Boundaries(ctx)
	if err != nil {
		if r.cfg.Maps.OnFetchError == "skip" {
			r.log.Warn("boundaries unavailable, skipping maps", slog.Any("error", err))
			return nil
		}
		return err
	}
	res := r.res.Results
	details := map[string]map[string]float64{}
	for _, g := range res.Borough.Groups {
		details[g.Key[0]] = g.Means
	}
	for _, m := range r.cfg.MapMetrics {
		if !contains(res.Metrics, m) {
			r.log.Warn("skipping map of unavailable metric", slog.String("metric", m))
			continue
		}
		if err := r.mapMetric(fc, geo.Map{
			Metric:   m,
			Title:    "Mean " + m + " by borough",
			Property: r.cfg.BoundaryProperty,
			Values:   values(res.Borough.Values(m)),
			Details:  details,
			Policy:   policy,
		}); err != nil {
			return err
		}
	}
	return nil
}

func values(labels []string, vals []float64) map[string]float64 {
	out := make(map[string]float64, len(labels))
	for i, l := range labels {
		out[l] = vals[i]
	}
	return out
}

func (r *runner) mapMetric(fc *geojson.FeatureCollection, m geo.Map) error {
	styles, missing, err := m.Prepare(fc)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		r.res.MissingBoroughs[m.Metric] = missing
		r.log.Warn("boroughs missing from boundaries", slog.String("metric", m.Metric), slog.Any("boroughs", missing))
	}
	path := r.path(geo.ChoroplethFile(m.Metric))
	if err := m.WriteChoropleth(fc, path); err != nil {
		return err
	}
	r.wrote(path)
	path = r.path(geo.LeafletFile(m.Metric))
	if err := m.WriteLeaflet(fc, styles, path); err != nil {
		return err
	}
	r.wrote(path)
	return nil
}

func (r *runner) dashboard(_ context.Context) error {
	res := r.res.Results
	doc, err := dashboard.Build(dashboard.Sources{
		Means:     res.Borough,
		GenderCol: survey.ColGender,
		RaceCol:   survey.ColRace,
		Metrics:   res.Metrics,
		Rows: map[string]int{
			"allunits": r.res.Loaded.AllUnits.Len(),
			"occupied": r.res.Loaded.Occupied.Len(),
			"person":   r.res.Loaded.Person.Len(),
			"joined":   r.res.Joined.Len(),
			"cleaned":  r.res.Cleaned.Len(),
			"recoded":  r.res.Recoded.Len(),
		},
	})
	if err != nil {
		return err
	}
	if err := doc.WriteJSON(r.path(dashboard.StatsFile), r.path(dashboard.FullFile)); err != nil {
		return err
	}
	r.wrote(r.path(dashboard.StatsFile))
	r.wrote(r.path(dashboard.FullFile))
	if err := doc.WriteScript(r.path(dashboard.ScriptFile)); err != nil {
		return err
	}
	r.wrote(r.path(dashboard.ScriptFile))
	if err := doc.WriteParquet(r.path(dashboard.ParquetFile)); err != nil {
		return err
	}
	r.wrote(r.path(dashboard.ParquetFile))
	r.res.Dashboard = doc
	return nil
}
