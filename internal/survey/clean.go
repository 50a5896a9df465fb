package survey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

// ErrEmptyResult is returned when a stage leaves no rows to analyze.
var ErrEmptyResult = errors.New("no rows left")

// DefaultSentinels are the "not applicable / not reported" codes.
var DefaultSentinels = []int{-1, -2, -3}

// Rule removes rows whose Column holds any of Sentinels, or is blank.
type Rule struct {
	Column    string
	Sentinels []int
	// Codes marks a category column: text labels are kept, and only blank
	// cells and sentinel codes match.
	Codes bool
}

// Cleaner applies rules in order. Rules only remove rows, so their order
// does not change the final row set.
type Cleaner struct {
	Rules []Rule
}

// DefaultRules applies DefaultSentinels to every analyzed numeric column.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(NumericColumns))
	for _, c := range NumericColumns {
		rules = append(rules, Rule{Column: c, Sentinels: DefaultSentinels})
	}
	return rules
}

// GroupRules applies sentinels to every GroupColumns code column.
func GroupRules(sentinels []int) []Rule {
	rules := make([]Rule, 0, len(GroupColumns))
	for _, c := range GroupColumns {
		rules = append(rules, Rule{Column: c, Sentinels: sentinels, Codes: true})
	}
	return rules
}

// CleanReport counts rows removed by each rule.
type CleanReport struct {
	Before  int
	After   int
	Dropped []RuleCount
}

// RuleCount is the number of rows one rule removed.
type RuleCount struct {
	Column string
	Rows   int
}

// Clean returns a new table without sentinel or blank cells in any ruled
// column.
func (c Cleaner) Clean(t *table.Table) (*table.Table, CleanReport, error) {
	rep := CleanReport{Before: t.Len()}
	cur := t
	for _, r := range c.Rules {
		if !cur.Has(r.Column) {
			return nil, rep, fmt.Errorf("clean: %w: %s", table.ErrColumnNotFound, r.Column)
		}
		tb := cur
		next := cur.Filter(func(i int) bool { return !r.matches(tb, i) })
		rep.Dropped = append(rep.Dropped, RuleCount{Column: r.Column, Rows: cur.Len() - next.Len()})
		cur = next
	}
	rep.After = cur.Len()
	if cur.Len() == 0 && t.Len() > 0 {
		return cur, rep, fmt.Errorf("clean: %w after removing sentinel values", ErrEmptyResult)
	}
	return cur, rep, nil
}

func (r Rule) matches(t *table.Table, i int) bool {
	if r.Codes {
		v, err := t.Value(i, r.Column)
		if err != nil || strings.TrimSpace(v) == "" {
			return true
		}
		code, ok := table.ParseCode(v)
		return ok && isSentinel(code, r.Sentinels)
	}
	x, err := t.Number(i, r.Column)
	if err != nil {
		// blank or unparseable cells carry no value to analyze
		return true
	}
	for _, s := range r.Sentinels {
		if x == float64(s) {
			return true
		}
	}
	return false
}

func isSentinel(code int, sentinels []int) bool {
	for _, s := range sentinels {
		if code == s {
			return true
		}
	}
	return false
}

// HasSentinel reports whether any ruled column of t still holds a sentinel.
func (c Cleaner) HasSentinel(t *table.Table) (bool, error) {
	for _, r := range c.Rules {
		if !t.Has(r.Column) {
			return false, fmt.Errorf("%w: %s", table.ErrColumnNotFound, r.Column)
		}
		for i := 0; i < t.Len(); i++ {
			if r.matches(t, i) {
				return true, nil
			}
		}
	}
	return false, nil
}
