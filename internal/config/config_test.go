package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "CONTROL", c.JoinKey)
	assert.Equal(t, "allunits_puf_23.csv", c.AllUnitsFile)
	assert.Equal(t, []int{-1, -2, -3}, c.Sentinels)
	assert.Equal(t, "error", c.Recode.Unknown)
	assert.Equal(t, "skip", c.Maps.OnMissing)
	assert.Equal(t, "abort", c.Maps.OnFetchError)
	assert.Equal(t, 30, c.HTTPTimeoutSec)
	assert.True(t, c.Charts.Enabled)
	assert.Equal(t, ',', c.Thousands())
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: results
maps:
  on_missing: abort
recode:
  unknown: drop
  labels:
    boro:
      "6": Elsewhere
`), 0o644))
	t.Setenv("NYCHVS_HTTP_TIMEOUT_SEC", "5")
	t.Setenv("NYCHVS_MAPS_ON_FETCH_ERROR", "skip")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "results", c.OutputDir)
	assert.Equal(t, "abort", c.Maps.OnMissing)
	assert.Equal(t, "skip", c.Maps.OnFetchError)
	assert.Equal(t, "drop", c.Recode.Unknown)
	assert.Equal(t, 5, c.HTTPTimeoutSec)

	labels, err := c.LabelOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[int]string{"BORO": {6: "Elsewhere"}}, labels)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recode:\n  unknown: ignore\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "recode.unknown")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.OutputDir = "elsewhere"
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".nychvs", "config.yaml"))
	require.NoError(t, err)
	back, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestSplitPair(t *testing.T) {
	y, x, err := SplitPair("RENT_AMOUNT : HHINC")
	require.NoError(t, err)
	assert.Equal(t, "RENT_AMOUNT", y)
	assert.Equal(t, "HHINC", x)
	_, _, err = SplitPair("RENT_AMOUNT")
	assert.Error(t, err)
}
