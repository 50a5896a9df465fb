package survey

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

// UnknownPolicy decides what happens to a code with no label.
type UnknownPolicy string

const (
	// UnknownError aborts recoding with *UnknownCodeError.
	UnknownError UnknownPolicy = "error"
	// UnknownDrop removes the row.
	UnknownDrop UnknownPolicy = "drop"
	// UnknownKeep leaves the raw code in place.
	UnknownKeep UnknownPolicy = "keep"
)

// ParseUnknownPolicy validates a policy name; empty means UnknownError.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch UnknownPolicy(s) {
	case "":
		return UnknownError, nil
	case UnknownError, UnknownDrop, UnknownKeep:
		return UnknownPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid unknown-code policy %q (use error, drop or keep)", s)
	}
}

// UnknownCodeError reports a code outside a column's label mapping.
type UnknownCodeError struct {
	Column string
	Row    int // 1-based row of the table being recoded
	Value  string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("recode %s row %d: unknown code %q", e.Column, e.Row, e.Value)
}

// Mapping is a closed code -> label mapping for one column.
type Mapping struct {
	Column string
	Labels map[int]string
}

// Label maps v to its display string. A value that is already one of the
// mapping's labels is returned unchanged.
func (m Mapping) Label(v string) (string, bool) {
	for _, l := range m.Labels {
		if v == l {
			return v, true
		}
	}
	code, ok := table.ParseCode(v)
	if !ok {
		return v, false
	}
	l, ok := m.Labels[code]
	if !ok {
		return v, false
	}
	return l, true
}

// LabelsInOrder returns labels sorted by code.
func (m Mapping) LabelsInOrder() []string {
	codes := make([]int, 0, len(m.Labels))
	for c := range m.Labels {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = m.Labels[c]
	}
	return out
}

// Default label mappings.
var (
	BoroughLabels = Mapping{Column: ColBorough, Labels: map[int]string{
		1: "Bronx", 2: "Brooklyn", 3: "Manhattan", 4: "Queens", 5: "Staten Island",
	}}
	GenderLabels = Mapping{Column: ColGender, Labels: map[int]string{
		1: "Male", 2: "Female",
	}}
	RaceLabels = Mapping{Column: ColRace, Labels: map[int]string{
		1: "White",
		2: "Black",
		3: "Asian",
		4: "American Indian or Alaska Native",
		5: "Native Hawaiian or Pacific Islander",
		6: "Two or more races",
		7: "Other",
	}}
	PetLabels    = Mapping{Column: ColPets, Labels: map[int]string{1: "Yes", 2: "No"}}
	RodentLabels = Mapping{Column: ColRodents, Labels: map[int]string{1: "Yes", 2: "No"}}
)

// DefaultMappings returns the standard set of label mappings.
func DefaultMappings() []Mapping {
	return []Mapping{BoroughLabels, RaceLabels, GenderLabels, PetLabels, RodentLabels}
}

// WithOverrides merges extra labels into ms by column. Columns without a
// default mapping are appended in name order.
func WithOverrides(ms []Mapping, over map[string]map[int]string) []Mapping {
	out := make([]Mapping, 0, len(ms)+len(over))
	used := map[string]bool{}
	for _, m := range ms {
		labels := make(map[int]string, len(m.Labels))
		for c, l := range m.Labels {
			labels[c] = l
		}
		for c, l := range over[m.Column] {
			labels[c] = l
		}
		used[m.Column] = true
		out = append(out, Mapping{Column: m.Column, Labels: labels})
	}
	extra := make([]string, 0, len(over))
	for col := range over {
		if !used[col] {
			extra = append(extra, col)
		}
	}
	sort.Strings(extra)
	for _, col := range extra {
		out = append(out, Mapping{Column: col, Labels: over[col]})
	}
	return out
}

// Recoder replaces category codes with labels.
type Recoder struct {
	Mappings []Mapping
	Policy   UnknownPolicy
	// Missing lists "not reported" codes. They are blanked before the
	// unknown-code policy applies.
	Missing  []int
	Logger   *slog.Logger
}

// RecodeReport counts rows handled by the unknown-code policy.
type RecodeReport struct {
	Dropped int
	Kept    map[string]int // column -> unmapped cells left as codes
	Missing map[string]int // column -> missing codes blanked
}

// Recode returns a new table with every mapped column labeled. It is
// idempotent: recoding a recoded table returns an equal table.
func (r Recoder) Recode(t *table.Table) (*table.Table, RecodeReport, error) {
	rep := RecodeReport{Kept: map[string]int{}, Missing: map[string]int{}}
	policy := r.Policy
	if policy == "" {
		policy = UnknownError
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cur := t
	for _, m := range r.Mappings {
		unknown := map[int]bool{}
		next, err := cur.MapColumn(m.Column, func(i int, v string) (string, error) {
			if v == "" {
				return v, nil
			}
			l, ok := m.Label(v)
			if ok {
				return l, nil
			}
			if code, ok := table.ParseCode(v); ok && isSentinel(code, r.Missing) {
				rep.Missing[m.Column]++
				return "", nil
			}
			switch policy {
			case UnknownDrop:
				unknown[i] = true
			case UnknownKeep:
				rep.Kept[m.Column]++
			default:
				return "", &UnknownCodeError{Column: m.Column, Row: i + 1, Value: v}
			}
			return v, nil
		})
		if err != nil {
			return nil, rep, err
		}
		if len(unknown) > 0 {
			next = next.Filter(func(i int) bool { return !unknown[i] })
			rep.Dropped += len(unknown)
			logger.Warn("dropped rows with unknown codes",
				slog.String("column", m.Column), slog.Int("rows", len(unknown)))
		}
		if n := rep.Missing[m.Column]; n > 0 {
			logger.Info("blanked missing codes",
				slog.String("column", m.Column), slog.Int("cells", n))
		}
		if n := rep.Kept[m.Column]; n > 0 {
			logger.Warn("kept unmapped codes",
				slog.String("column", m.Column), slog.Int("cells", n))
		}
		cur = next
	}
	if cur.Len() == 0 && t.Len() > 0 {
		return cur, rep, fmt.Errorf("recode: %w after dropping unknown codes", ErrEmptyResult)
	}
	return cur, rep, nil
}

// Unmapped returns the distinct values of m.Column that are neither a known
// code nor a label.
func Unmapped(t *table.Table, m Mapping) ([]string, error) {
	vals, err := t.Column(m.Column)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		if _, ok := m.Label(v); !ok {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, aerr := strconv.Atoi(out[i])
		b, berr := strconv.Atoi(out[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return out[i] < out[j]
	})
	return out, nil
}
