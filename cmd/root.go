package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/nychvs-cli/internal/config"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	// HTTP flags (override config if set)
	flagHTTPTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is rebuilt after the config loads.
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()("✓")
	warnMark = color.New(color.FgYellow, color.Bold).SprintFunc()("⚠")
)

var rootCmd = &cobra.Command{
	Use:   "nychvs",
	Short: "NYCHVS CLI: join, clean and summarize the NYC Housing and Vacancy Survey",
	Long: `nychvs joins the NYCHVS all-units, occupied and person extracts, removes
sentinel codes, recodes categories to labels, and writes borough, gender and
race summaries as tables, charts, maps and dashboard files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.nychvs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text | json (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "boundary fetch timeout in seconds (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "%s Warning: failed to load config: %v\n", warnMark, err)
		cfg = nil
		logger = newLogger(os.Stderr, logFormat)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	logger = newLogger(os.Stderr, cfg.LogFormat)
	slog.SetDefault(logger)
}

func newLogger(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// requireConfig returns the loaded config or the reason it is missing.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
