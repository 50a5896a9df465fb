// Package analysis groups survey records and profiles input tables.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/nychvs-cli/internal/table"
)

// Profile is a markdown-friendly overview of one table.
type Profile struct {
	Name string
	Rows int
	Cols []ColumnSummary
	Head [][]string
	Tail [][]string
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical|empty
	NonNull int
	Missing int
	Unique  int
	Min     float64
	Max     float64
	Mean    float64
	Std     float64
	// TopValues holds the most frequent values of a categorical column.
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// NewProfile summarizes every column of t and keeps sampleRows rows from
// each end.
func NewProfile(t *table.Table, sampleRows int) *Profile {
	if sampleRows <= 0 {
		sampleRows = 5
	}
	p := &Profile{Name: t.Name(), Rows: t.Len()}
	for _, col := range t.Columns() {
		vals, _ := t.Column(col)
		p.Cols = append(p.Cols, summarize(col, vals, t.Thousands()))
	}
	p.Head = t.Head(sampleRows)
	p.Tail = t.Tail(sampleRows)
	return p
}

func summarize(name string, vals []string, thou rune) ColumnSummary {
	c := ColumnSummary{Name: name}
	var nums []float64
	cats := map[string]int{}
	for _, v := range vals {
		if v == "" {
			c.Missing++
			continue
		}
		c.NonNull++
		cats[v]++
		if x, ok := table.ParseNumber(v, thou); ok {
			nums = append(nums, x)
		}
	}
	c.Unique = len(cats)
	switch {
	case c.NonNull == 0:
		c.Kind = "empty"
	case len(nums) == c.NonNull:
		c.Kind = "numeric"
		c.Min = floats.Min(nums)
		c.Max = floats.Max(nums)
		if len(nums) > 1 {
			c.Mean, c.Std = stat.MeanStdDev(nums, nil)
		} else {
			c.Mean = nums[0]
		}
	default:
		c.Kind = "categorical"
		for v, n := range cats {
			c.TopValues = append(c.TopValues, CategoryCount{Value: v, Count: n})
		}
		sort.Slice(c.TopValues, func(i, j int) bool {
			if c.TopValues[i].Count == c.TopValues[j].Count {
				return c.TopValues[i].Value < c.TopValues[j].Value
			}
			return c.TopValues[i].Count > c.TopValues[j].Count
		})
		if len(c.TopValues) > 5 {
			c.TopValues = c.TopValues[:5]
		}
	}
	return c
}

// Markdown renders the profile as sections of plain text and a pipe table.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Shape: %d rows x %d columns\n\n", p.Rows, len(p.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical":
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
		b.WriteString("\n")
	}
	if len(p.Head) > 0 {
		b.WriteString("\n[HEAD]\n")
		p.writeRows(&b, p.Head)
	}
	if len(p.Tail) > 0 {
		b.WriteString("\n[TAIL]\n")
		p.writeRows(&b, p.Tail)
	}
	return b.String()
}

func (p *Profile) writeRows(b *strings.Builder, rows [][]string) {
	names := make([]string, len(p.Cols))
	dashes := make([]string, len(p.Cols))
	for i, c := range p.Cols {
		names[i] = safeName(c.Name)
		dashes[i] = "---"
	}
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	b.WriteString("| " + strings.Join(dashes, " | ") + " |\n")
	for _, row := range rows {
		cells := make([]string, len(p.Cols))
		for i := range cells {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if r := []rune(val); len(r) > 80 {
				val = string(r[:77]) + "..."
			}
			cells[i] = safeVal(val)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
