package table

import (
	"fmt"
	"strings"
)

// InnerJoin joins left and right on key with relational inner-join semantics.
// Output columns are left's columns followed by right's columns except key.
// A right column whose name already exists on the left is suffixed with
// "_" + right.Name(). Duplicate keys yield every matching pair; rows with a
// blank key never match.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	li, err := left.ColumnIndex(key)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	ri, err := right.ColumnIndex(key)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	header := left.Columns()
	var rightCols []int
	for j, c := range right.header {
		if j == ri {
			continue
		}
		name := c
		if left.Has(name) {
			name = c + "_" + right.Name()
		}
		header = append(header, name)
		rightCols = append(rightCols, j)
	}

	// right rows by key, in original order
	byKey := make(map[string][]int, len(right.rows))
	for i, r := range right.rows {
		k := strings.TrimSpace(r[ri])
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], i)
	}

	var rows [][]string
	for _, lr := range left.rows {
		k := strings.TrimSpace(lr[li])
		if k == "" {
			continue
		}
		for _, idx := range byKey[k] {
			rr := right.rows[idx]
			row := make([]string, 0, len(header))
			row = append(row, lr...)
			for _, j := range rightCols {
				row = append(row, rr[j])
			}
			rows = append(rows, row)
		}
	}

	out, err := New(left.Name()+"+"+right.Name(), header, rows)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	out.thousands = left.thousands
	return out, nil
}
