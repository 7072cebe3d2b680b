// Package aggregator computes column totals over merged rows and produces
// the final SummaryTable.
package aggregator

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// DefaultTotalsLabel is the marker placed in the name column of the totals
// row when no label is configured.
const DefaultTotalsLabel = "TOTAL"

// Aggregate sums quantity, cost and weight over rows and appends a totals
// row labelled label. Absent values count as zero for the sums only; the
// rows are copied into the table unchanged. Sums are exact; any rounding is
// left to the renderer.
func Aggregate(rows []types.MergedRow, label string) *types.SummaryTable {
	if label == "" {
		label = DefaultTotalsLabel
	}

	totals := types.TotalsRow{
		Label:    label,
		Quantity: decimal.Zero,
		Cost:     decimal.Zero,
		Weight:   decimal.Zero,
	}
	for _, row := range rows {
		totals.Quantity = totals.Quantity.Add(valueOrZero(row.Quantity))
		totals.Cost = totals.Cost.Add(valueOrZero(row.Cost))
		totals.Weight = totals.Weight.Add(valueOrZero(row.Weight))
	}

	copied := make([]types.MergedRow, len(rows))
	copy(copied, rows)

	return &types.SummaryTable{
		Rows:   copied,
		Totals: totals,
	}
}

func valueOrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}
