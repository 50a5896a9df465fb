// Package render turns aggregates into text tables, PNG charts and an
// Excel workbook.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
)

// Grid is one printable table: a title, a header and formatted rows.
// Numeric cells keep their value in Values for the workbook export.
type Grid struct {
	Title  string
	Header []string
	Rows   [][]string
	Values [][]float64 // NaN where the cell is a label
}

// MeansGrid lays out agg with one row per group and one column per metric.
func MeansGrid(title string, agg *analysis.Aggregate, metrics []string) Grid {
	g := Grid{Title: title, Header: append(append([]string{}, agg.Grouping.By...), "n")}
	g.Header = append(g.Header, metrics...)
	for _, grp := range agg.Groups {
		row := append([]string{}, grp.Key...)
		vals := make([]float64, 0, len(row)+1+len(metrics))
		for range grp.Key {
			vals = append(vals, nan)
		}
		row = append(row, strconv.Itoa(grp.Size))
		vals = append(vals, float64(grp.Size))
		for _, m := range metrics {
			v := grp.Means[m]
			row = append(row, format2(v))
			vals = append(vals, v)
		}
		g.Rows = append(g.Rows, row)
		g.Values = append(g.Values, vals)
	}
	return g
}

// FractionsGrid lays out the category shares of col with one column per
// category. Missing categories print as 0.00.
func FractionsGrid(title string, agg *analysis.Aggregate, col string) Grid {
	cats := agg.Categories(col)
	g := Grid{Title: title, Header: append(append([]string{}, agg.Grouping.By...), cats...)}
	for _, grp := range agg.Groups {
		row := append([]string{}, grp.Key...)
		vals := make([]float64, 0, len(row)+len(cats))
		for range grp.Key {
			vals = append(vals, nan)
		}
		for _, c := range cats {
			v := grp.Fractions[col][c]
			row = append(row, format2(v))
			vals = append(vals, v)
		}
		g.Rows = append(g.Rows, row)
		g.Values = append(g.Values, vals)
	}
	return g
}

// WriteText renders grids as bordered fixed-column tables.
func WriteText(w io.Writer, grids ...Grid) error {
	for i, g := range grids {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", g.Title); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetHeader(g.Header)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		table.AppendBulk(g.Rows)
		table.Render()
	}
	return nil
}

func format2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
