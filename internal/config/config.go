package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	AllUnitsFile string `mapstructure:"allunits_file" yaml:"allunits_file"`
	OccupiedFile string `mapstructure:"occupied_file" yaml:"occupied_file"`
	PersonFile   string `mapstructure:"person_file" yaml:"person_file"`
	// Sheet names the worksheet of .xlsx inputs; empty means the first one.
	Sheet              string `mapstructure:"sheet" yaml:"sheet"`
	OutputDir          string `mapstructure:"output_dir" yaml:"output_dir"`
	JoinKey            string `mapstructure:"join_key" yaml:"join_key"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	// Cleaning
	Sentinels    []int    `mapstructure:"sentinels" yaml:"sentinels"`
	CleanColumns []string `mapstructure:"clean_columns" yaml:"clean_columns"`

	Recode Recode `mapstructure:"recode" yaml:"recode"`

	// Boundaries and maps
	BoundariesURL    string   `mapstructure:"boundaries_url" yaml:"boundaries_url"`
	BoundariesFile   string   `mapstructure:"boundaries_file" yaml:"boundaries_file"`
	BoundaryProperty string   `mapstructure:"boundary_property" yaml:"boundary_property"`
	HTTPTimeoutSec   int      `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	MapMetrics       []string `mapstructure:"map_metrics" yaml:"map_metrics"`
	Maps             Maps     `mapstructure:"maps" yaml:"maps"`

	Charts Charts `mapstructure:"charts" yaml:"charts"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Recode configures label mappings.
type Recode struct {
	// Unknown is error, drop or keep.
	Unknown string `mapstructure:"unknown" yaml:"unknown"`
	// Labels overrides the default labels: column -> code -> label.
	Labels map[string]map[string]string `mapstructure:"labels" yaml:"labels,omitempty"`
}

// Maps configures the map fallbacks.
type Maps struct {
	OnMissing    string `mapstructure:"on_missing" yaml:"on_missing"`
	OnFetchError string `mapstructure:"on_fetch_error" yaml:"on_fetch_error"`
}

// Charts selects the chart artifacts.
type Charts struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Scatter lists "Y:X" column pairs.
	Scatter []string `mapstructure:"scatter" yaml:"scatter"`
	// Bars lists metrics charted per borough.
	Bars []string `mapstructure:"bars" yaml:"bars"`
}

// Dir returns the default config directory, ~/.nychvs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".nychvs"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.nychvs/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("allunits_file", "allunits_puf_23.csv")
	v.SetDefault("occupied_file", "occupied_puf_23.csv")
	v.SetDefault("person_file", "person_puf_23.csv")
	v.SetDefault("sheet", "")
	v.SetDefault("output_dir", "out")
	v.SetDefault("join_key", "CONTROL")
	v.SetDefault("thousands_separator", ",")
	v.SetDefault("sentinels", []int{-1, -2, -3})
	v.SetDefault("clean_columns", []string{
		"RENT_AMOUNT", "UTIL_SUMMER", "UTIL_WINTER", "LEASE_LENGTH", "GROSS_RENT",
		"NUM_PROBLEMS", "UNIT_RATING", "HHINC", "AGE",
	})
	v.SetDefault("recode.unknown", "error")
	v.SetDefault("boundaries_url", "https://data.cityofnewyork.us/api/geospatial/tqmj-j8zm?method=export&format=GeoJSON")
	v.SetDefault("boundaries_file", "")
	v.SetDefault("boundary_property", "boro_name")
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("map_metrics", []string{"RENT_AMOUNT", "HHINC", "UNIT_RATING"})
	v.SetDefault("maps.on_missing", "skip")
	v.SetDefault("maps.on_fetch_error", "abort")
	v.SetDefault("charts.enabled", true)
	v.SetDefault("charts.scatter", []string{"RENT_AMOUNT:HHINC", "GROSS_RENT:UNIT_RATING", "NUM_PROBLEMS:LEASE_LENGTH"})
	v.SetDefault("charts.bars", []string{"RENT_AMOUNT", "HHINC", "UNIT_RATING", "NUM_PROBLEMS"})
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("NYCHVS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated settings.
func (c *Global) Validate() error {
	if err := oneOf("recode.unknown", c.Recode.Unknown, "error", "drop", "keep"); err != nil {
		return err
	}
	if err := oneOf("maps.on_missing", c.Maps.OnMissing, "skip", "abort"); err != nil {
		return err
	}
	if err := oneOf("maps.on_fetch_error", c.Maps.OnFetchError, "abort", "skip"); err != nil {
		return err
	}
	if err := oneOf("log_format", c.LogFormat, "text", "json"); err != nil {
		return err
	}
	if len([]rune(c.ThousandsSeparator)) > 1 {
		return fmt.Errorf("thousands_separator must be a single character, got %q", c.ThousandsSeparator)
	}
	if c.JoinKey == "" {
		return fmt.Errorf("join_key must not be empty")
	}
	for _, p := range c.Charts.Scatter {
		if _, _, err := SplitPair(p); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(key, v string, allowed ...string) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s: invalid value %q (use %s)", key, v, strings.Join(allowed, ", "))
}

// Thousands returns the configured separator rune, or 0 for none.
func (c *Global) Thousands() rune {
	r := []rune(c.ThousandsSeparator)
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// SplitPair splits a "Y:X" scatter pair.
func SplitPair(p string) (y, x string, err error) {
	parts := strings.Split(p, ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("charts.scatter: %q is not a Y:X pair", p)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// LabelOverrides converts Recode.Labels into integer codes. Column names are
// upper-cased since viper lower-cases map keys.
func (c *Global) LabelOverrides() (map[string]map[int]string, error) {
	out := make(map[string]map[int]string, len(c.Recode.Labels))
	for col, labels := range c.Recode.Labels {
		m := make(map[int]string, len(labels))
		for code, label := range labels {
			n, err := strconv.Atoi(strings.TrimSpace(code))
			if err != nil {
				return nil, fmt.Errorf("recode.labels.%s: code %q is not an integer", col, code)
			}
			m[n] = label
		}
		out[strings.ToUpper(col)] = m
	}
	return out, nil
}
