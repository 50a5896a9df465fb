// Package pipeline runs the survey stages in order: load, join, clean,
// recode, aggregate and export. Each stage returns a new value; none
// modifies its input.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
	"github.com/KaramelBytes/nychvs-cli/internal/config"
	"github.com/KaramelBytes/nychvs-cli/internal/dashboard"
	"github.com/KaramelBytes/nychvs-cli/internal/geo"
	"github.com/KaramelBytes/nychvs-cli/internal/survey"
	"github.com/KaramelBytes/nychvs-cli/internal/table"
	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// Stage names one step of a run.
type Stage string

const (
	StageLoad      Stage = "load"
	StageJoin      Stage = "join"
	StageClean     Stage = "clean"
	StageRecode    Stage = "recode"
	StageAggregate Stage = "aggregate"
	StageRender    Stage = "render"
	StageMaps      Stage = "maps"
	StageDashboard Stage = "dashboard"
)

// Stages lists every stage in run order.
var Stages = []Stage{StageLoad, StageJoin, StageClean, StageRecode, StageAggregate, StageRender, StageMaps, StageDashboard}

// Options tune a run beyond the configuration.
type Options struct {
	// Boundaries overrides the boundary source chosen from the config.
	Boundaries geo.Source
	// Stdout receives the text tables; nil discards them.
	Stdout io.Writer
	Logger *slog.Logger
	// OnStage is called after each stage completes.
	OnStage func(Stage, time.Duration)
	// SkipMaps disables the boundary fetch and the map pages.
	SkipMaps bool
}

// Loaded holds the three validated extracts.
type Loaded struct {
	AllUnits *table.Table
	Occupied *table.Table
	Person   *table.Table
}

// Results are the aggregates of one run.
type Results struct {
	// Borough holds metric means and gender and race shares per borough.
	Borough       *analysis.Aggregate
	BoroughGender *analysis.Aggregate
	BoroughRace   *analysis.Aggregate
	Gender        *analysis.Aggregate
	Race          *analysis.Aggregate
	// SortedBorough maps a metric to the borough table sorted by it.
	SortedBorough map[string]*analysis.Aggregate
	Metrics       []string
}

// Result names every intermediate value of a run and the written files.
type Result struct {
	Loaded       Loaded
	Joined       *table.Table
	Cleaned      *table.Table
	Recoded      *table.Table
	CleanReport  survey.CleanReport
	RecodeReport survey.RecodeReport
	Results      Results
	Dashboard    *dashboard.Document
	// MissingBoroughs maps a map metric to boroughs without a polygon.
	MissingBoroughs map[string][]string
	Artifacts       []string
}

type runner struct {
	cfg    *config.Global
	opts   Options
	log    *slog.Logger
	outDir string
	res    *Result
}

// Run executes every stage and returns the named stage values.
func Run(ctx context.Context, cfg *config.Global, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	outDir, err := utils.ExpandHome(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	r := &runner{cfg: cfg, opts: opts, log: opts.Logger, outDir: outDir, res: &Result{MissingBoroughs: map[string][]string{}}}

	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageLoad, r.load},
		{StageJoin, r.join},
		{StageClean, r.clean},
		{StageRecode, r.recode},
		{StageAggregate, r.aggregate},
		{StageRender, r.render},
		{StageMaps, r.maps},
		{StageDashboard, r.dashboard},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		start := time.Now()
		if err := s.fn(ctx); err != nil {
			return r.res, fmt.Errorf("%s: %w", s.stage, err)
		}
		if opts.OnStage != nil {
			opts.OnStage(s.stage, time.Since(start))
		}
	}
	return r.res, nil
}

func (r *runner) path(name string) string { return filepath.Join(r.outDir, name) }

func (r *runner) wrote(path string) {
	r.res.Artifacts = append(r.res.Artifacts, path)
	r.log.Debug("wrote artifact", slog.String("path", path))
}

func (r *runner) load(_ context.Context) error {
	dataDir, err := utils.ExpandHome(r.cfg.DataDir)
	if err != nil {
		return err
	}
	opt := table.LoadOptions{Thousands: r.cfg.Thousands(), Sheet: r.cfg.Sheet}
	files := map[survey.Source]string{
		survey.AllUnits: r.cfg.AllUnitsFile,
		survey.Occupied: r.cfg.OccupiedFile,
		survey.Person:   r.cfg.PersonFile,
	}
	loaded := map[survey.Source]*table.Table{}
	for _, src := range survey.Sources {
		path := files[src]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		t, err := table.LoadFile(path, opt)
		if err != nil {
			return fmt.Errorf("load %s: %w", src, err)
		}
		if err := survey.SchemaFor(src, r.cfg.JoinKey).Validate(t); err != nil {
			return err
		}
		r.log.Info("loaded extract", slog.String("source", string(src)), slog.String("file", path), slog.Int("rows", t.Len()))
		loaded[src] = t
	}
	r.res.Loaded = Loaded{AllUnits: loaded[survey.AllUnits], Occupied: loaded[survey.Occupied], Person: loaded[survey.Person]}
	return nil
}

func (r *runner) join(_ context.Context) error {
	l := r.res.Loaded
	units, err := table.InnerJoin(l.AllUnits, l.Occupied, r.cfg.JoinKey)
	if err != nil {
		return err
	}
	joined, err := table.InnerJoin(units, l.Person, r.cfg.JoinKey)
	if err != nil {
		return err
	}
	if joined.Len() == 0 {
		return fmt.Errorf("%w: no %s matched across the extracts", survey.ErrEmptyResult, r.cfg.JoinKey)
	}
	r.log.Info("joined extracts", slog.Int("rows", joined.Len()))
	r.res.Joined = joined
	return nil
}

func (r *runner) clean(_ context.Context) error {
	rules := make([]survey.Rule, 0, len(r.cfg.CleanColumns)+len(survey.GroupColumns))
	for _, c := range r.cfg.CleanColumns {
		if contains(survey.GroupColumns, c) {
			continue
		}
		rules = append(rules, survey.Rule{Column: c, Sentinels: r.cfg.Sentinels})
	}
	// group keys lose rows with blank or not-reported codes
	rules = append(rules, survey.GroupRules(r.cfg.Sentinels)...)
	cleaned, rep, err := survey.Cleaner{Rules: rules}.Clean(r.res.Joined)
	r.res.CleanReport = rep
	for _, d := range rep.Dropped {
		if d.Rows > 0 {
			r.log.Info("dropped sentinel rows", slog.String("column", d.Column), slog.Int("rows", d.Rows))
		}
	}
	if err != nil {
		return err
	}
	r.log.Info("cleaned", slog.Int("before", rep.Before), slog.Int("after", rep.After))
	r.res.Cleaned = cleaned
	return nil
}

func (r *runner) recode(_ context.Context) error {
	policy, err := survey.ParseUnknownPolicy(r.cfg.Recode.Unknown)
	if err != nil {
		return err
	}
	over, err := r.cfg.LabelOverrides()
	if err != nil {
		return err
	}
	rc := survey.Recoder{
		Mappings: survey.WithOverrides(survey.DefaultMappings(), over),
		Policy:   policy,
		Missing:  r.cfg.Sentinels,
		Logger:   r.log,
	}
	recoded, rep, err := rc.Recode(r.res.Cleaned)
	r.res.RecodeReport = rep
	if err != nil {
		return err
	}
	r.res.Recoded = recoded
	return nil
}

// metrics returns the analyzed numeric columns that were cleaned.
func (r *runner) metrics() []string {
	cleaned := map[string]bool{}
	for _, c := range r.cfg.CleanColumns {
		cleaned[c] = true
	}
	var out []string
	for _, c := range survey.NumericColumns {
		if cleaned[c] && r.res.Recoded.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// SortKeys are the metrics the borough table is presented sorted by.
var SortKeys = []string{survey.ColRent, survey.ColIncome, survey.ColUnitRating}

func (r *runner) aggregate(_ context.Context) error {
	t := r.res.Recoded
	metrics := r.metrics()
	res := Results{Metrics: metrics, SortedBorough: map[string]*analysis.Aggregate{}}
	groupings := []struct {
		dst **analysis.Aggregate
		grp analysis.Grouping
	}{
		{&res.Borough, analysis.Grouping{Name: "borough", By: []string{survey.ColBorough}, Means: metrics, Fractions: []string{survey.ColGender, survey.ColRace}}},
		{&res.BoroughGender, analysis.Grouping{Name: "borough_gender", By: []string{survey.ColBorough, survey.ColGender}, Means: metrics}},
		{&res.BoroughRace, analysis.Grouping{Name: "borough_race", By: []string{survey.ColBorough, survey.ColRace}, Means: metrics}},
		{&res.Gender, analysis.Grouping{Name: "gender", By: []string{survey.ColGender}, Means: metrics}},
		{&res.Race, analysis.Grouping{Name: "race", By: []string{survey.ColRace}, Means: metrics}},
	}
	for _, s := range groupings {
		agg, err := analysis.Summarize(t, s.grp)
		if err != nil {
			return err
		}
		*s.dst = agg
	}
	for _, m := range SortKeys {
		if !contains(metrics, m) {
			continue
		}
		sorted, err := res.Borough.SortedBy(m)
		if err != nil {
			return err
		}
		res.SortedBorough[m] = sorted
	}
	r.log.Info("aggregated", slog.Int("boroughs", len(res.Borough.Groups)), slog.Int("metrics", len(metrics)))
	r.res.Results = res
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
