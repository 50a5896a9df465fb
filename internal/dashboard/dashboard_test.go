package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

func document(t *testing.T) *Document {
	t.Helper()
	tb, err := table.New("joined", []string{"BORO", "GENDER", "RACE", "RENT_AMOUNT"}, [][]string{
		{"Bronx", "Male", "White", "1000"},
		{"Bronx", "Female", "Black", "1400"},
		{"Queens", "Female", "Asian", "1700"},
	})
	require.NoError(t, err)
	agg, err := analysis.Summarize(tb, analysis.Grouping{
		Name: "borough", By: []string{"BORO"},
		Means: []string{"RENT_AMOUNT"}, Fractions: []string{"GENDER", "RACE"},
	})
	require.NoError(t, err)
	doc, err := Build(Sources{Means: agg, GenderCol: "GENDER", RaceCol: "RACE", Metrics: []string{"RENT_AMOUNT"}, Rows: map[string]int{"joined": 3}})
	require.NoError(t, err)
	return doc
}

func TestBuild(t *testing.T) {
	doc := document(t)
	_, err := uuid.Parse(doc.Meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bronx", "Queens"}, doc.Names())

	bronx := doc.Boroughs["Bronx"]
	assert.Equal(t, 2, bronx.N)
	assert.InDelta(t, 1200, bronx.Means["RENT_AMOUNT"], 1e-9)
	assert.InDelta(t, 0.5, bronx.Gender["Female"], 1e-9)
	assert.Equal(t, Flat{"Bronx": {"RENT_AMOUNT": 1200}, "Queens": {"RENT_AMOUNT": 1700}}, doc.Flat())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(Sources{})
	assert.Error(t, err)

	tb, err := table.New("x", []string{"BORO", "RENT_AMOUNT"}, [][]string{{"Bronx", "1"}})
	require.NoError(t, err)
	agg, err := analysis.Summarize(tb, analysis.Grouping{Name: "b", By: []string{"BORO"}, Means: []string{"RENT_AMOUNT"}})
	require.NoError(t, err)
	_, err = Build(Sources{Means: agg, Metrics: []string{"HHINC"}})
	assert.Error(t, err)
}

func TestJSONAndScriptEncodeSameValues(t *testing.T) {
	doc := document(t)
	dir := t.TempDir()
	flat := filepath.Join(dir, StatsFile)
	full := filepath.Join(dir, FullFile)
	script := filepath.Join(dir, ScriptFile)
	require.NoError(t, doc.WriteJSON(flat, full))
	require.NoError(t, doc.WriteScript(script))

	back, err := ReadScript(script)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, back); diff != "" {
		t.Fatalf("script round trip mismatch (-want +got):\n%s", diff)
	}

	b, err := os.ReadFile(full)
	require.NoError(t, err)
	var fromJSON Document
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	if diff := cmp.Diff(back, &fromJSON); diff != "" {
		t.Fatalf("json and script differ (-script +json):\n%s", diff)
	}

	b, err = os.ReadFile(flat)
	require.NoError(t, err)
	var f Flat
	require.NoError(t, json.Unmarshal(b, &f))
	assert.Equal(t, doc.Flat(), f)
}

func TestReadScriptRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.js")
	require.NoError(t, os.WriteFile(path, []byte("var other = {};"), 0o644))
	_, err := ReadScript(path)
	assert.Error(t, err)
}

func TestParquet(t *testing.T) {
	doc := document(t)
	rows := doc.Tidy()
	// Bronx: RENT_AMOUNT, 2 gender, 2 race, n; Queens: RENT_AMOUNT, 1 gender, 1 race, n
	require.Len(t, rows, 10)
	assert.Equal(t, Row{Borough: "Bronx", Metric: "RENT_AMOUNT", Value: 1200}, rows[0])
	assert.Equal(t, Row{Borough: "Queens", Metric: "n", Value: 1}, rows[8])

	path := filepath.Join(t.TempDir(), ParquetFile)
	require.NoError(t, doc.WriteParquet(path))
	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()
	assert.EqualValues(t, 10, rdr.NumRows())
	assert.Equal(t, 3, rdr.MetaData().Schema.NumColumns())
}
