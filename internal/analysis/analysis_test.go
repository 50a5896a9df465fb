package analysis

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

func labeled(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New("joined", []string{"BORO", "GENDER", "RACE", "RENT_AMOUNT", "HHINC"}, [][]string{
		{"Bronx", "Male", "White", "1000", "40000"},
		{"Bronx", "Female", "Black", "1,400", "52000"},
		{"Brooklyn", "Female", "Asian", "1800", "61000"},
		{"Manhattan", "Male", "White", "2600", "90000"},
		{"Manhattan", "Female", "White", "3000", "110000"},
		{"Manhattan", "Female", "Asian", "2200", "70000"},
	})
	require.NoError(t, err)
	return tb
}

func TestSummarizeMeans(t *testing.T) {
	agg, err := Summarize(labeled(t), Grouping{Name: "borough", By: []string{"BORO"}, Means: []string{"RENT_AMOUNT", "HHINC"}})
	require.NoError(t, err)
	require.Len(t, agg.Groups, 3)

	labels, rents := agg.Values("RENT_AMOUNT")
	assert.Equal(t, []string{"Bronx", "Brooklyn", "Manhattan"}, labels)
	assert.InDeltaSlice(t, []float64{1200, 1800, 2600}, rents, 1e-9)

	m, ok := agg.Group("Manhattan")
	require.True(t, ok)
	assert.Equal(t, 3, m.Size)
	assert.InDelta(t, 90000, m.Means["HHINC"], 1e-9)

	_, ok = agg.Group("Queens")
	assert.False(t, ok, "groups only exist for observed keys")
}

func TestSummarizeFractionsSumToOne(t *testing.T) {
	agg, err := Summarize(labeled(t), Grouping{Name: "race", By: []string{"BORO"}, Fractions: []string{"RACE"}})
	require.NoError(t, err)
	for _, g := range agg.Groups {
		sum := 0.0
		for _, f := range g.Fractions["RACE"] {
			sum += f
		}
		assert.InDelta(t, 1.0, sum, 1e-9, g.Label())
	}
	m, _ := agg.Group("Manhattan")
	assert.InDelta(t, 2.0/3.0, m.Fractions["RACE"]["White"], 1e-9)
	assert.Equal(t, []string{"Asian", "Black", "White"}, agg.Categories("RACE"))
}

func TestSummarizeCompositeKey(t *testing.T) {
	agg, err := Summarize(labeled(t), Grouping{Name: "gender", By: []string{"BORO", "GENDER"}, Means: []string{"RENT_AMOUNT"}})
	require.NoError(t, err)
	g, ok := agg.Group("Manhattan", "Female")
	require.True(t, ok)
	assert.Equal(t, "Manhattan / Female", g.Label())
	assert.InDelta(t, 2600, g.Means["RENT_AMOUNT"], 1e-9)
	assert.Len(t, agg.Groups, 5)
}

func TestSortedByDescending(t *testing.T) {
	agg, err := Summarize(labeled(t), Grouping{Name: "borough", By: []string{"BORO"}, Means: []string{"RENT_AMOUNT"}})
	require.NoError(t, err)
	sorted, err := agg.SortedBy("RENT_AMOUNT")
	require.NoError(t, err)

	labels, vals := sorted.Values("RENT_AMOUNT")
	assert.Equal(t, []string{"Manhattan", "Brooklyn", "Bronx"}, labels)
	for i := 1; i < len(vals); i++ {
		assert.GreaterOrEqual(t, vals[i-1], vals[i])
	}
	orig, _ := agg.Values("RENT_AMOUNT")
	assert.Equal(t, []string{"Bronx", "Brooklyn", "Manhattan"}, orig, "sorting returns a copy")

	_, err = agg.SortedBy("HHINC")
	assert.Error(t, err)
}

func TestSummarizeErrors(t *testing.T) {
	_, err := Summarize(labeled(t), Grouping{Name: "x"})
	assert.Error(t, err)
	_, err = Summarize(labeled(t), Grouping{Name: "x", By: []string{"NOPE"}})
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
	_, err = Summarize(labeled(t), Grouping{Name: "x", By: []string{"BORO"}, Means: []string{"RACE"}})
	assert.Error(t, err, "text column cannot be averaged")
}

func TestProfileMarkdown(t *testing.T) {
	p := NewProfile(labeled(t), 2)
	assert.Equal(t, 6, p.Rows)
	require.Len(t, p.Cols, 5)

	rent := p.Cols[3]
	assert.Equal(t, "numeric", rent.Kind)
	assert.Equal(t, 1000.0, rent.Min)
	assert.Equal(t, 3000.0, rent.Max)
	assert.InDelta(t, 2000, rent.Mean, 1e-9)
	assert.False(t, math.IsNaN(rent.Std))

	boro := p.Cols[0]
	assert.Equal(t, "categorical", boro.Kind)
	assert.Equal(t, CategoryCount{Value: "Manhattan", Count: 3}, boro.TopValues[0])

	md := p.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "Shape: 6 rows x 5 columns", "[SCHEMA]", "[HEAD]", "[TAIL]", "| BORO | GENDER"} {
		assert.True(t, strings.Contains(md, want), want)
	}
	assert.Len(t, p.Head, 2)
	assert.Equal(t, "Manhattan", p.Tail[1][0])
}

func TestProfileTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("é", 100)
	tb, err := table.New("notes", []string{"NOTE"}, [][]string{{long}})
	require.NoError(t, err)
	md := NewProfile(tb, 1).Markdown()
	assert.True(t, utf8.ValidString(md))
	i := strings.Index(md, "[HEAD]")
	require.GreaterOrEqual(t, i, 0)
	head := md[i:]
	assert.Contains(t, head, strings.Repeat("é", 77)+"...")
	assert.NotContains(t, head, strings.Repeat("é", 78))
}
