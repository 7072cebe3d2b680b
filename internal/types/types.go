// =============================================================================
// Trade Document Reconciler - Shared Types
// =============================================================================
//
// This package contains the data model shared by every stage of the
// reconciliation pipeline. Keeping it in one leaf package avoids import
// cycles between:
//   - tablesource (produces Documents)
//   - extractor   (produces ItemRecords)
//   - reconciler  (produces MergedRows)
//   - aggregator  (produces the SummaryTable)
//   - render      (consumes the SummaryTable)
//
// All values here are treated as immutable once built. Stages create new
// slices instead of editing the ones they receive.
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// CellKind tells which of the three cell shapes a Cell holds.
type CellKind int

const (
	// CellEmpty is an absent value (blank cell, missing trailing column).
	CellEmpty CellKind = iota

	// CellText is a string value as produced by the table source.
	CellText

	// CellNumber is a native numeric value (e.g. a numeric XLSX cell).
	CellNumber
)

// Cell is one value of a RawRow.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Text returns a text cell.
func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// Number returns a native numeric cell.
func Number(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// Empty returns an absent cell.
func Empty() Cell {
	return Cell{}
}

// IsEmpty reports whether the cell carries no value at all.
// A text cell made only of whitespace is not empty here; callers that care
// use normalize.CleanText.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// RawRow is one extracted table row. Its length may differ between rows of
// the same document.
type RawRow []Cell

// At returns the cell at index i, or an empty cell when i is out of range.
func (r RawRow) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Empty()
	}
	return r[i]
}

// TextRow builds a RawRow from strings. Empty strings become empty cells.
func TextRow(values ...string) RawRow {
	row := make(RawRow, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = Empty()
			continue
		}
		row[i] = Text(v)
	}
	return row
}

// Document is the complete row sequence of one uploaded artifact, in
// top-to-bottom order. A nil *Document means the document was not supplied.
type Document struct {
	// Name is a display name (usually the uploaded file name).
	Name string

	// Rows holds the table rows in document order.
	Rows []RawRow
}

// Width returns the length of the widest row.
func (d *Document) Width() int {
	width := 0
	for _, row := range d.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// ItemRecord is one line item extracted from a single document.
type ItemRecord struct {
	// Code is the identifying code (e.g. HS/TN VED code). Empty means absent.
	Code string

	// Name is the cleaned item name. Never empty for a retained record.
	Name string

	// Key is the normalized join key derived from Name. Never displayed.
	Key string

	// Quantity, Cost and Weight are valid or explicitly absent.
	Quantity decimal.NullDecimal
	Cost     decimal.NullDecimal
	Weight   decimal.NullDecimal

	// SourceOrder is the 1-based position among retained records of the
	// document. It is contiguous and becomes the visible row number.
	SourceOrder int

	// SourceRow is the 0-based index of the originating RawRow.
	SourceRow int
}

// MergedRow is one output row after joining primary and secondary records.
type MergedRow struct {
	// Number is the display row number (the primary record's SourceOrder).
	Number int

	Code     string
	Name     string
	Quantity decimal.NullDecimal
	Cost     decimal.NullDecimal

	// Weight comes from the secondary document, absent when no key matched.
	Weight decimal.NullDecimal

	// Matched reports whether a secondary record was found for the key.
	Matched bool
}

// TotalsRow is the synthetic final row holding column sums.
// The identity columns (number, code) are always blank placeholders.
type TotalsRow struct {
	Label    string
	Quantity decimal.Decimal
	Cost     decimal.Decimal
	Weight   decimal.Decimal
}

// SummaryTable is the terminal artifact handed to a renderer.
type SummaryTable struct {
	Rows   []MergedRow
	Totals TotalsRow
}
