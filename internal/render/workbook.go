package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

var nan = math.NaN()

// WriteWorkbook saves one sheet per grid. Numeric cells are stored as
// numbers, labels as strings.
func WriteWorkbook(path string, grids []Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	used := map[string]bool{}
	for i, g := range grids {
		name := sheetName(g.Title, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("workbook sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("workbook sheet %s: %w", name, err)
		}
		header := make([]interface{}, len(g.Header))
		for j, h := range g.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("workbook header %s: %w", name, err)
		}
		for r, row := range g.Rows {
			cells := make([]interface{}, len(row))
			for j, v := range row {
				if r < len(g.Values) && j < len(g.Values[r]) && !math.IsNaN(g.Values[r][j]) {
					cells[j] = g.Values[r][j]
				} else {
					cells[j] = v
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return fmt.Errorf("workbook row %s: %w", name, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// sheetName drops characters Excel rejects and keeps names unique within
// the 31 character limit.
func sheetName(title string, i int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, title)
	if name == "" {
		name = fmt.Sprintf("Table %d", i+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	for base, n := name, 2; used[name]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		if len(base)+len(suffix) > 31 {
			base = base[:31-len(suffix)]
		}
		name = base + suffix
	}
	used[name] = true
	return name
}
