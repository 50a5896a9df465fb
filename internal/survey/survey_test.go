package survey

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New("joined", []string{ColControl, ColBorough, ColRent, ColIncome}, [][]string{
		{"1", "1", "1000", "50,000"},
		{"2", "2", "-2", "40000"},
		{"3", "1", "1,400", "-1"},
		{"4", "3", "1200", ""},
		{"5", "4", "900", "30000"},
	})
	require.NoError(t, err)
	return tb
}

func TestCleanRemovesSentinels(t *testing.T) {
	c := Cleaner{Rules: []Rule{
		{Column: ColRent, Sentinels: DefaultSentinels},
		{Column: ColIncome, Sentinels: DefaultSentinels},
	}}
	in := sample(t)
	out, rep, err := c.Clean(in)
	require.NoError(t, err)

	ids, _ := out.Column(ColControl)
	assert.Equal(t, []string{"1", "5"}, ids)
	assert.Equal(t, 5, rep.Before)
	assert.Equal(t, 2, rep.After)
	assert.Equal(t, []RuleCount{{Column: ColRent, Rows: 1}, {Column: ColIncome, Rows: 2}}, rep.Dropped)

	dirty, err := c.HasSentinel(out)
	require.NoError(t, err)
	assert.False(t, dirty)
	dirty, err = c.HasSentinel(in)
	require.NoError(t, err)
	assert.True(t, dirty)
	assert.Equal(t, 5, in.Len(), "input must not be modified")
}

func TestCleanRulesCommute(t *testing.T) {
	a := Rule{Column: ColRent, Sentinels: DefaultSentinels}
	b := Rule{Column: ColIncome, Sentinels: DefaultSentinels}
	ab, _, err := Cleaner{Rules: []Rule{a, b}}.Clean(sample(t))
	require.NoError(t, err)
	ba, _, err := Cleaner{Rules: []Rule{b, a}}.Clean(sample(t))
	require.NoError(t, err)
	x, _ := ab.Column(ColControl)
	y, _ := ba.Column(ColControl)
	assert.Equal(t, x, y)
}

func TestCleanErrors(t *testing.T) {
	_, _, err := Cleaner{Rules: []Rule{{Column: "MISSING", Sentinels: DefaultSentinels}}}.Clean(sample(t))
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))

	all, err := table.New("x", []string{ColRent}, [][]string{{"-1"}, {"-3"}})
	require.NoError(t, err)
	_, _, err = Cleaner{Rules: []Rule{{Column: ColRent, Sentinels: DefaultSentinels}}}.Clean(all)
	assert.True(t, errors.Is(err, ErrEmptyResult))
}

func TestRecodeIdempotent(t *testing.T) {
	r := Recoder{Mappings: []Mapping{BoroughLabels}}
	once, _, err := r.Recode(sample(t))
	require.NoError(t, err)
	twice, _, err := r.Recode(once)
	require.NoError(t, err)

	a, _ := once.Column(ColBorough)
	b, _ := twice.Column(ColBorough)
	assert.Equal(t, []string{"Bronx", "Brooklyn", "Bronx", "Manhattan", "Queens"}, a)
	assert.Equal(t, a, b)
}

func unknownSample(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New("joined", []string{ColControl, ColBorough}, [][]string{
		{"1", "1"}, {"2", "9"}, {"3", "5"},
	})
	require.NoError(t, err)
	return tb
}

func TestRecodeUnknownPolicies(t *testing.T) {
	_, _, err := Recoder{Mappings: []Mapping{BoroughLabels}}.Recode(unknownSample(t))
	var uerr *UnknownCodeError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, &UnknownCodeError{Column: ColBorough, Row: 2, Value: "9"}, uerr)

	dropped, rep, err := Recoder{Mappings: []Mapping{BoroughLabels}, Policy: UnknownDrop}.Recode(unknownSample(t))
	require.NoError(t, err)
	got, _ := dropped.Column(ColBorough)
	assert.Equal(t, []string{"Bronx", "Staten Island"}, got)
	assert.Equal(t, 1, rep.Dropped)

	kept, rep, err := Recoder{Mappings: []Mapping{BoroughLabels}, Policy: UnknownKeep}.Recode(unknownSample(t))
	require.NoError(t, err)
	got, _ = kept.Column(ColBorough)
	assert.Equal(t, []string{"Bronx", "9", "Staten Island"}, got)
	assert.Equal(t, 1, rep.Kept[ColBorough])

	left, err := Unmapped(kept, BoroughLabels)
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, left)
}

func TestParseUnknownPolicy(t *testing.T) {
	p, err := ParseUnknownPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnknownError, p)
	p, err = ParseUnknownPolicy("drop")
	require.NoError(t, err)
	assert.Equal(t, UnknownDrop, p)
	_, err = ParseUnknownPolicy("ignore")
	assert.Error(t, err)
}

func TestSchemaForSources(t *testing.T) {
	for _, src := range Sources {
		s := SchemaFor(src, ColControl)
		require.NotEmpty(t, s)
		assert.Equal(t, table.Field{Name: ColControl, Kind: table.KindID}, s[0], "source %s", src)
	}
	assert.Contains(t, SchemaFor(Occupied, ColControl).Names(), ColRent)
	assert.Equal(t, []string{"Bronx", "Brooklyn", "Manhattan", "Queens", "Staten Island"}, BoroughLabels.LabelsInOrder())
}

func TestWithOverrides(t *testing.T) {
	ms := WithOverrides([]Mapping{BoroughLabels}, map[string]map[int]string{
		ColBorough: {6: "Elsewhere"},
		"TENURE":   {1: "Owner"},
	})
	require.Len(t, ms, 2)
	assert.Equal(t, "Elsewhere", ms[0].Labels[6])
	assert.Equal(t, "Bronx", ms[0].Labels[1])
	assert.Equal(t, "TENURE", ms[1].Column)
	_, ok := BoroughLabels.Labels[6]
	assert.False(t, ok, "defaults are not modified")
}

func TestGroupRulesKeepLabels(t *testing.T) {
	tb, err := table.New("joined", []string{ColControl, ColBorough, ColGender, ColRace}, [][]string{
		{"1", "1", "1", "1"},
		{"2", "Bronx", "Female", "Asian"},
		{"3", "", "2", "1"},
		{"4", "2", "-2", "3"},
		{"5", "3", "1", "-1"},
	})
	require.NoError(t, err)
	out, rep, err := Cleaner{Rules: GroupRules(DefaultSentinels)}.Clean(tb)
	require.NoError(t, err)
	ids, _ := out.Column(ColControl)
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, []RuleCount{{Column: ColBorough, Rows: 1}, {Column: ColGender, Rows: 1}, {Column: ColRace, Rows: 1}}, rep.Dropped)
}

func TestRecodeBlanksMissingCodes(t *testing.T) {
	tb, err := table.New("joined", []string{ColControl, ColRodents}, [][]string{
		{"1", "-2"}, {"2", "1"}, {"3", "9"},
	})
	require.NoError(t, err)
	r := Recoder{Mappings: []Mapping{RodentLabels}, Missing: DefaultSentinels, Policy: UnknownDrop}
	out, rep, err := r.Recode(tb)
	require.NoError(t, err)
	got, _ := out.Column(ColRodents)
	assert.Equal(t, []string{"", "Yes"}, got)
	assert.Equal(t, 1, rep.Missing[ColRodents])
	assert.Equal(t, 1, rep.Dropped)

	_, _, err = Recoder{Mappings: []Mapping{RodentLabels}}.Recode(tb)
	var uerr *UnknownCodeError
	require.True(t, errors.As(err, &uerr), "without Missing, -2 is an unknown code")
	assert.Equal(t, "-2", uerr.Value)
}
