package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// maxSheetName is the Excel limit on worksheet name length.
const maxSheetName = 31

// WriteXLSX writes the table as a single-sheet workbook. Numbers are stored
// as numeric cells rounded to the configured precision; absent values are
// left blank.
func WriteXLSX(w io.Writer, table *types.SummaryTable, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(opts.Title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	view := NewView(table, opts)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	header := make([]any, len(view.Headers))
	for i, h := range view.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range table.Rows {
		values := []any{
			row.Number,
			blankIfEmpty(row.Code),
			row.Name,
			rounded(row.Weight, opts.WeightPrecision),
			rounded(row.Quantity, opts.QuantityPrecision),
			rounded(row.Cost, opts.CostPrecision),
		}
		if err := f.SetSheetRow(sheet, cell(1, i+2), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	totalsRow := len(table.Rows) + 2
	t := table.Totals
	totals := []any{
		nil,
		nil,
		t.Label,
		rounded(decimal.NewNullDecimal(t.Weight), opts.WeightPrecision),
		rounded(decimal.NewNullDecimal(t.Quantity), opts.QuantityPrecision),
		rounded(decimal.NewNullDecimal(t.Cost), opts.CostPrecision),
	}
	if err := f.SetSheetRow(sheet, cell(1, totalsRow), &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetRowStyle(sheet, totalsRow, totalsRow, bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}
	if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// rounded returns a float for numeric cells or nil for a blank cell.
func rounded(n decimal.NullDecimal, places int32) any {
	if !n.Valid {
		return nil
	}
	return n.Decimal.Round(places).InexactFloat64()
}

func blankIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "Summary"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
