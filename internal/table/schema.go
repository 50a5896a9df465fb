package table

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a schema field.
type Kind string

const (
	KindID     Kind = "id"     // join identifier, non-blank text
	KindCode   Kind = "code"   // integer category code, or its label
	KindNumber Kind = "number" // numeric amount or count
	KindText   Kind = "text"
)

// Field describes one required column.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the fixed set of columns a source must supply.
type Schema []Field

// Issue is a single schema violation.
type Issue struct {
	Column string
	Row    int // 1-based data row, 0 for column-level issues
	Value  string
	Reason string
}

// SchemaError lists every violation found while validating one source.
type SchemaError struct {
	Source string
	Issues []Issue
}

func (e *SchemaError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "schema error"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Row > 0 {
			parts = append(parts, fmt.Sprintf("%s row %d: %q %s", is.Column, is.Row, is.Value, is.Reason))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", is.Column, is.Reason))
		}
	}
	return fmt.Sprintf("schema %s: %s", e.Source, strings.Join(parts, "; "))
}

// maxIssuesPerColumn bounds the report for badly broken files.
const maxIssuesPerColumn = 3

// Validate checks that t has every schema column and that each cell parses
// as its field kind. Blank numeric and code cells are allowed (they are
// treated as missing downstream); blank ids are not.
func (s Schema) Validate(t *Table) error {
	serr := &SchemaError{Source: t.Name()}
	for _, f := range s {
		j, ok := t.index[f.Name]
		if !ok {
			serr.Issues = append(serr.Issues, Issue{Column: f.Name, Reason: "missing column"})
			continue
		}
		bad := 0
		for i, r := range t.rows {
			if bad >= maxIssuesPerColumn {
				break
			}
			v := strings.TrimSpace(r[j])
			if reason := checkKind(f.Kind, v, t.thousands); reason != "" {
				serr.Issues = append(serr.Issues, Issue{Column: f.Name, Row: i + 1, Value: v, Reason: reason})
				bad++
			}
		}
	}
	if len(serr.Issues) > 0 {
		return serr
	}
	return nil
}

// Names returns the schema's column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

func checkKind(k Kind, v string, thou rune) string {
	switch k {
	case KindID:
		if v == "" {
			return "blank identifier"
		}
	case KindNumber:
		if v == "" {
			return ""
		}
		if _, ok := ParseNumber(v, thou); !ok {
			return "is not numeric"
		}
	case KindCode:
		if v == "" {
			return ""
		}
		if _, ok := ParseCode(v); !ok {
			return "is not an integer code"
		}
	}
	return ""
}
