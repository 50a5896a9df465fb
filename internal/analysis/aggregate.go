package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

// Grouping selects the grouping and the statistics of one aggregate.
type Grouping struct {
	// Name identifies the aggregate in tables and exports, e.g. "borough".
	Name string
	// By lists the label columns forming the group key.
	By []string
	// Means lists numeric columns averaged per group.
	Means []string
	// Fractions lists categorical columns turned into per-group shares.
	Fractions []string
}

// Group is the read-only result for one group key.
type Group struct {
	Key       []string
	Size      int
	Means     map[string]float64
	Fractions map[string]map[string]float64
}

// Label joins the key parts for display.
func (g Group) Label() string { return strings.Join(g.Key, " / ") }

// Aggregate is the result of Summarize. Groups are ordered by key.
type Aggregate struct {
	Grouping Grouping
	Groups   []Group
}

// Summarize groups t by grouping.By and computes means and category fractions.
// A group's fraction for a category is its count divided by the group size,
// so the fractions of one column sum to 1 for every group.
func Summarize(t *table.Table, grouping Grouping) (*Aggregate, error) {
	if len(grouping.By) == 0 {
		return nil, fmt.Errorf("aggregate %s: no group columns", grouping.Name)
	}
	keys := make([][]string, len(grouping.By))
	for i, c := range grouping.By {
		v, err := t.Column(c)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", grouping.Name, err)
		}
		keys[i] = v
	}
	nums := make(map[string][]float64, len(grouping.Means))
	for _, c := range grouping.Means {
		v, err := t.Numbers(c)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", grouping.Name, err)
		}
		nums[c] = v
	}
	cats := make(map[string][]string, len(grouping.Fractions))
	for _, c := range grouping.Fractions {
		v, err := t.Column(c)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", grouping.Name, err)
		}
		cats[c] = v
	}

	// row indexes per group key
	type gAcc struct {
		key  []string
		rows []int
	}
	groups := map[string]*gAcc{}
	for i := 0; i < t.Len(); i++ {
		parts := make([]string, len(keys))
		for k := range keys {
			parts[k] = keys[k][i]
		}
		id := strings.Join(parts, "\x00")
		ga := groups[id]
		if ga == nil {
			ga = &gAcc{key: parts}
			groups[id] = ga
		}
		ga.rows = append(ga.rows, i)
	}

	out := &Aggregate{Grouping: grouping, Groups: make([]Group, 0, len(groups))}
	for _, ga := range groups {
		g := Group{
			Key:       ga.key,
			Size:      len(ga.rows),
			Means:     make(map[string]float64, len(grouping.Means)),
			Fractions: make(map[string]map[string]float64, len(grouping.Fractions)),
		}
		for _, c := range grouping.Means {
			x := make([]float64, len(ga.rows))
			for k, i := range ga.rows {
				x[k] = nums[c][i]
			}
			g.Means[c] = stat.Mean(x, nil)
		}
		for _, c := range grouping.Fractions {
			counts := map[string]int{}
			for _, i := range ga.rows {
				counts[cats[c][i]]++
			}
			fr := make(map[string]float64, len(counts))
			for v, n := range counts {
				fr[v] = float64(n) / float64(g.Size)
			}
			g.Fractions[c] = fr
		}
		out.Groups = append(out.Groups, g)
	}
	sort.Slice(out.Groups, func(i, j int) bool {
		return lessKey(out.Groups[i].Key, out.Groups[j].Key)
	})
	return out, nil
}

// SortedBy returns a copy whose groups are ordered by metric, descending.
// Ties keep key order. Values are not changed.
func (a *Aggregate) SortedBy(metric string) (*Aggregate, error) {
	if !has(a.Grouping.Means, metric) {
		return nil, fmt.Errorf("aggregate %s: %s is not an averaged column", a.Grouping.Name, metric)
	}
	groups := make([]Group, len(a.Groups))
	copy(groups, a.Groups)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Means[metric] > groups[j].Means[metric]
	})
	return &Aggregate{Grouping: a.Grouping, Groups: groups}, nil
}

// Group returns the group with the given key.
func (a *Aggregate) Group(key ...string) (Group, bool) {
	for _, g := range a.Groups {
		if equalKey(g.Key, key) {
			return g, true
		}
	}
	return Group{}, false
}

// Values returns metric for every group in order, with the group labels.
func (a *Aggregate) Values(metric string) (labels []string, values []float64) {
	for _, g := range a.Groups {
		labels = append(labels, g.Label())
		values = append(values, g.Means[metric])
	}
	return labels, values
}

// Categories returns the distinct categories of a fraction column across
// all groups, sorted.
func (a *Aggregate) Categories(col string) []string {
	seen := map[string]bool{}
	for _, g := range a.Groups {
		for v := range g.Fractions[col] {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func lessKey(a, b []string) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func equalKey(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func has(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
