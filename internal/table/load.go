package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadOptions controls how an input file becomes a Table.
type LoadOptions struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Thousands separator used by numeric accessors. If 0, ','.
	Thousands rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// LoadFile reads a delimited text file or an XLSX workbook into a Table
// named after the file's base name.
func LoadFile(path string, opt LoadOptions) (*Table, error) {
	var (
		t   *Table
		err error
	)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		t, err = loadXLSX(path, opt.Sheet)
	} else {
		t, err = loadCSV(path, opt)
	}
	if err != nil {
		return nil, err
	}
	if opt.Thousands != 0 {
		t = t.WithThousands(opt.Thousands)
	}
	return t, nil
}

func loadCSV(path string, opt LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(filepath.Base(path), f, delim)
}

// ReadCSV reads delimited text with a header row from r.
func ReadCSV(name string, r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: empty file", name)
		}
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	header = append([]string(nil), header...)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %s row %d: %w", name, len(rows)+1, err)
		}
		// Skip fully blank lines
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, rec)
	}
	return New(name, header, rows)
}

func loadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx %s: no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx %s: sheet %q is empty", filepath.Base(path), sheet)
	}
	return New(filepath.Base(path), rows[0], rows[1:])
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
