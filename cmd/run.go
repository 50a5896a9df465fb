package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/term"

	"github.com/KaramelBytes/nychvs-cli/internal/pipeline"
)

var (
	runDataDir    string
	runOutputDir  string
	runBoundaries string
	runSkipMaps   bool
	runNoCharts   bool
	runNoProgress bool
	runUnknown    string
	runOnMissing  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline and write every artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		// Apply command overrides on a copy so repeated runs start clean
		rc := *c
		if runDataDir != "" {
			rc.DataDir = runDataDir
		}
		if runOutputDir != "" {
			rc.OutputDir = runOutputDir
		}
		if runBoundaries != "" {
			rc.BoundariesFile = runBoundaries
		}
		if runNoCharts {
			rc.Charts.Enabled = false
		}
		if runUnknown != "" {
			rc.Recode.Unknown = runUnknown
		}
		if runOnMissing != "" {
			rc.Maps.OnMissing = runOnMissing
		}
		if err := rc.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := pipeline.Options{
			Stdout:   cmd.OutOrStdout(),
			Logger:   logger,
			SkipMaps: runSkipMaps,
		}
		var prog *progress
		if !runNoProgress && term.IsTerminal(int(os.Stderr.Fd())) {
			prog = newProgress(os.Stderr, len(pipeline.Stages))
			opts.OnStage = prog.stage
		}
		start := time.Now()
		res, err := pipeline.Run(ctx, &rc, opts)
		if prog != nil {
			prog.finish()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Joined %d rows, kept %d after cleaning, %d after recoding\n",
			okMark, res.Joined.Len(), res.Cleaned.Len(), res.Recoded.Len())
		for metric, boroughs := range res.MissingBoroughs {
			fmt.Fprintf(out, "%s %s map has no polygon for: %v\n", warnMark, metric, boroughs)
		}
		fmt.Fprintf(out, "%s Wrote %d artifacts to %s in %s\n",
			okMark, len(res.Artifacts), rc.OutputDir, time.Since(start).Round(time.Millisecond))
		if debug {
			for _, a := range res.Artifacts {
				fmt.Fprintf(out, "  %s\n", a)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "directory holding the three extracts (overrides config)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "output directory (overrides config)")
	runCmd.Flags().StringVar(&runBoundaries, "boundaries", "", "local borough GeoJSON file instead of the download URL")
	runCmd.Flags().BoolVar(&runSkipMaps, "skip-maps", false, "skip the boundary fetch and map pages")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "skip PNG charts")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the progress bar")
	runCmd.Flags().StringVar(&runUnknown, "unknown", "", "unmapped code policy: error | drop | keep (overrides config)")
	runCmd.Flags().StringVar(&runOnMissing, "on-missing", "", "borough without polygon: skip | abort (overrides config)")
}

// progress advances one bar per completed stage.
type progress struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	total int
	done  int
}

func newProgress(w io.Writer, total int) *progress {
	width := 80
	if tw, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && tw > 0 {
		width = tw
	}
	p := mpb.New(mpb.WithWidth(width), mpb.WithOutput(w))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("stages"), decor.CountersNoUnit(" %d/%d", decor.WCSyncSpace)),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.BarRemoveOnComplete(),
	)
	return &progress{p: p, bar: bar, total: total}
}

func (pr *progress) stage(s pipeline.Stage, d time.Duration) {
	pr.done++
	pr.bar.IncrBy(1)
	logger.Debug("stage done", "stage", string(s), "took", d)
}

// finish completes the bar when a run stops early so Wait returns.
func (pr *progress) finish() {
	if rest := pr.total - pr.done; rest > 0 {
		pr.bar.IncrBy(rest)
	}
	pr.p.Wait()
}
