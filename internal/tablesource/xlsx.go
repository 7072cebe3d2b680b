package tablesource

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// readXLSX reads one worksheet. Cells stored as numbers become Number
// cells; everything else is text.
func readXLSX(r io.Reader, opts Options) ([]types.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	// Raw values keep numbers unformatted ("1500" rather than "1,500.00").
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	result := make([]types.RawRow, len(rows))
	for i, row := range rows {
		cells := make(types.RawRow, len(row))
		for j, raw := range row {
			if raw == "" {
				cells[j] = types.Empty()
				continue
			}
			cells[j] = xlsxCell(f, sheetName, i, j, raw)
		}
		result[i] = cells
	}
	return result, nil
}

func xlsxCell(f *excelize.File, sheet string, row, col int, raw string) types.Cell {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return types.Text(raw)
	}
	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return types.Text(raw)
	}

	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeFormula:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return types.Number(n)
		}
	}
	return types.Text(raw)
}
