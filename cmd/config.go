package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/nychvs-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set nychvs configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "allunits_file: %s\n", cfg.AllUnitsFile)
		fmt.Fprintf(out, "occupied_file: %s\n", cfg.OccupiedFile)
		fmt.Fprintf(out, "person_file: %s\n", cfg.PersonFile)
		if cfg.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", cfg.Sheet)
		}
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "join_key: %s\n", cfg.JoinKey)
		fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		fmt.Fprintf(out, "sentinels: %v\n", cfg.Sentinels)
		fmt.Fprintf(out, "clean_columns: %s\n", strings.Join(cfg.CleanColumns, ","))
		fmt.Fprintf(out, "recode.unknown: %s\n", cfg.Recode.Unknown)
		if cfg.BoundariesFile != "" {
			fmt.Fprintf(out, "boundaries_file: %s\n", cfg.BoundariesFile)
		} else {
			fmt.Fprintf(out, "boundaries_url: %s\n", cfg.BoundariesURL)
		}
		fmt.Fprintf(out, "boundary_property: %s\n", cfg.BoundaryProperty)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "map_metrics: %s\n", strings.Join(cfg.MapMetrics, ","))
		fmt.Fprintf(out, "maps.on_missing: %s\n", cfg.Maps.OnMissing)
		fmt.Fprintf(out, "maps.on_fetch_error: %s\n", cfg.Maps.OnFetchError)
		fmt.Fprintf(out, "charts.enabled: %t\n", cfg.Charts.Enabled)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next := *c
		switch key {
		case "data_dir":
			next.DataDir = val
		case "allunits_file":
			next.AllUnitsFile = val
		case "occupied_file":
			next.OccupiedFile = val
		case "person_file":
			next.PersonFile = val
		case "sheet":
			next.Sheet = val
		case "output_dir":
			next.OutputDir = val
		case "join_key":
			next.JoinKey = val
		case "thousands_separator":
			next.ThousandsSeparator = val
		case "sentinels":
			ints, err := parseInts(val)
			if err != nil {
				return fmt.Errorf("invalid sentinels: %w", err)
			}
			next.Sentinels = ints
		case "clean_columns":
			next.CleanColumns = splitList(val)
		case "recode.unknown":
			next.Recode.Unknown = val
		case "boundaries_url":
			next.BoundariesURL = val
		case "boundaries_file":
			next.BoundariesFile = val
		case "boundary_property":
			next.BoundaryProperty = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			next.HTTPTimeoutSec = i
		case "map_metrics":
			next.MapMetrics = splitList(val)
		case "maps.on_missing":
			next.Maps.OnMissing = val
		case "maps.on_fetch_error":
			next.Maps.OnFetchError = val
		case "charts.enabled":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for charts.enabled: %w", err)
			}
			next.Charts.Enabled = b
		case "log_format":
			next.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved config\n", okMark)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
