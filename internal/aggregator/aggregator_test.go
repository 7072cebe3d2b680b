package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleRows() []types.MergedRow {
	return []types.MergedRow{
		{Number: 1, Code: "001", Name: "Sofa Grand", Quantity: num("10"), Cost: num("1500"), Weight: num("45.2"), Matched: true},
		{Number: 2, Code: "002", Name: "Chair Basic", Quantity: num("5"), Cost: num("300"), Weight: num("12.0"), Matched: true},
		{Number: 3, Code: "003", Name: "Table Oak", Quantity: num("0.5"), Cost: num("0.1")},
	}
}

func TestAggregateTotals(t *testing.T) {
	table := Aggregate(sampleRows(), "Итого")

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Итого", table.Totals.Label)
	assert.Equal(t, "15.5", table.Totals.Quantity.String())
	assert.Equal(t, "1800.1", table.Totals.Cost.String())
	assert.Equal(t, "57.2", table.Totals.Weight.String())
}

func TestAggregateKeepsAbsentValues(t *testing.T) {
	rows := sampleRows()
	table := Aggregate(rows, "")

	assert.Equal(t, DefaultTotalsLabel, table.Totals.Label)
	assert.False(t, table.Rows[2].Weight.Valid)

	// The table owns its rows.
	table.Rows[0].Name = "changed"
	assert.Equal(t, "Sofa Grand", rows[0].Name)
}

func TestAggregateIsDeterministic(t *testing.T) {
	assert.Equal(t, Aggregate(sampleRows(), "T"), Aggregate(sampleRows(), "T"))
}

func TestAggregateEmpty(t *testing.T) {
	table := Aggregate(nil, "T")
	assert.Empty(t, table.Rows)
	assert.True(t, table.Totals.Cost.IsZero())
	assert.True(t, table.Totals.Weight.IsZero())
}
