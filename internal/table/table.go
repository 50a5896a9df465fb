package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrColumnNotFound is returned when a named column is not part of a table.
var ErrColumnNotFound = errors.New("column not found")

// Table is an immutable, row-oriented set of string cells with a named header.
// Operations that change contents return a new Table.
type Table struct {
	name   string
	header []string
	index  map[string]int
	rows   [][]string

	thousands rune
}

// New builds a table. Rows shorter than the header are padded with empty
// cells; longer rows are an error.
func New(name string, header []string, rows [][]string) (*Table, error) {
	h := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, c := range header {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if c == "" {
			return nil, fmt.Errorf("table %s: empty column name at position %d", name, i+1)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, c)
		}
		h[i] = c
		index[c] = i
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) > len(h) {
			return nil, fmt.Errorf("table %s: row %d has %d cells, header has %d", name, i+1, len(r), len(h))
		}
		row := make([]string, len(h))
		copy(row, r)
		out[i] = row
	}
	return &Table{name: name, header: h, index: index, rows: out, thousands: ','}, nil
}

// WithThousands returns a view of t that parses numbers using sep as the
// thousands separator.
func (t *Table) WithThousands(sep rune) *Table {
	d := t.derive(t.name, t.rows)
	d.thousands = sep
	return d
}

// Name returns the table name (usually the source file base name).
func (t *Table) Name() string { return t.name }

// Thousands returns the thousands separator used when parsing numbers.
func (t *Table) Thousands() rune { return t.thousands }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the header.
func (t *Table) Columns() []string {
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// ColumnIndex returns the position of col.
func (t *Table) ColumnIndex(col string) (int, error) {
	i, ok := t.index[col]
	if !ok {
		return -1, fmt.Errorf("%w: %s in %s", ErrColumnNotFound, col, t.name)
	}
	return i, nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Value returns the trimmed cell at row i, column col.
func (t *Table) Value(i int, col string) (string, error) {
	j, err := t.ColumnIndex(col)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(t.rows[i][j]), nil
}

// Number parses the cell at row i, column col as a number.
func (t *Table) Number(i int, col string) (float64, error) {
	v, err := t.Value(i, col)
	if err != nil {
		return 0, err
	}
	x, ok := ParseNumber(v, t.thousands)
	if !ok {
		return 0, fmt.Errorf("%s row %d: %s=%q is not numeric", t.name, i+1, col, v)
	}
	return x, nil
}

// Column returns the trimmed values of col.
func (t *Table) Column(col string) ([]string, error) {
	j, err := t.ColumnIndex(col)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = strings.TrimSpace(r[j])
	}
	return out, nil
}

// Numbers returns col parsed as numbers; blank or non-numeric cells are an error.
func (t *Table) Numbers(col string) ([]float64, error) {
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		x, ok := ParseNumber(v, t.thousands)
		if !ok {
			return nil, fmt.Errorf("%s row %d: %s=%q is not numeric", t.name, i+1, col, v)
		}
		out[i] = x
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	return t.derive(t.name, rows)
}

// MapColumn returns a new table with fn applied to every cell of col.
func (t *Table) MapColumn(col string, fn func(i int, v string) (string, error)) (*Table, error) {
	j, err := t.ColumnIndex(col)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		nv, err := fn(i, strings.TrimSpace(r[j]))
		if err != nil {
			return nil, err
		}
		row := make([]string, len(r))
		copy(row, r)
		row[j] = nv
		rows[i] = row
	}
	return t.derive(t.name, rows), nil
}

// Head returns up to n leading rows.
func (t *Table) Head(n int) [][]string {
	n = clamp(n, len(t.rows))
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, t.Row(i))
	}
	return out
}

// Tail returns up to n trailing rows.
func (t *Table) Tail(n int) [][]string {
	n = clamp(n, len(t.rows))
	out := make([][]string, 0, n)
	for i := len(t.rows) - n; i < len(t.rows); i++ {
		out = append(out, t.Row(i))
	}
	return out
}

// derive shares row slices with t; rows are never written in place.
func (t *Table) derive(name string, rows [][]string) *Table {
	return &Table{name: name, header: t.header, index: t.index, rows: rows, thousands: t.thousands}
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
