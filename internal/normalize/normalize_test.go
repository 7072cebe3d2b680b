package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name  string
		cell  types.Cell
		want  string
		valid bool
	}{
		{"native number", types.Number(45.2), "45.2", true},
		{"plain integer text", types.Text("1500"), "1500", true},
		{"comma decimal", types.Text("45,2"), "45.2", true},
		{"nbsp thousands", types.Text("1\u00a0500,75"), "1500.75", true},
		{"narrow nbsp thousands", types.Text("12\u202f000"), "12000", true},
		{"regular spaces", types.Text(" 1 500 "), "1500", true},
		{"dot thousands comma decimal", types.Text("1.500,50"), "1500.5", true},
		{"comma thousands dot decimal", types.Text("1,500.50"), "1500.5", true},
		{"repeated comma thousands", types.Text("1,500,000"), "1500000", true},
		{"repeated dot thousands", types.Text("1.500.000"), "1500000", true},
		{"negative", types.Text("-3,5"), "-3.5", true},
		{"unit suffix", types.Text("12 kg"), "", false},
		{"word", types.Text("Sofa"), "", false},
		{"empty text", types.Text("   "), "", false},
		{"empty cell", types.Empty(), "", false},
		{"nan", types.Number(math.NaN()), "", false},
		{"inf", types.Number(math.Inf(1)), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.cell)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Sofa Grand", CleanText(types.Text("  Sofa\n  Grand\t")))
	assert.Equal(t, "Диван угловой", CleanText(types.Text("Диван\r\nугловой")))
	assert.Equal(t, "12.5", CleanText(types.Number(12.5)))
	assert.Equal(t, "", CleanText(types.Empty()))
}

func TestExtractFixedDigitCode(t *testing.T) {
	tests := []struct {
		name string
		cell types.Cell
		want string
		ok   bool
	}{
		{"exact ten digits", types.Text("9401610000"), "9401610000", true},
		{"separated ten digits", types.Text("9401 61-000.0"), "9401610000", true},
		{"numeric cell", types.Number(9401610000), "9401610000", true},
		{"nine digits", types.Text("940161000"), "", false},
		{"eleven digits", types.Text("94016100001"), "", false},
		{"separated nine digits", types.Text("9401 61 000"), "", false},
		{"no digits", types.Text("code"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFixedDigitCode(tt.cell, 10)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ExtractFixedDigitCode(types.Text("123"), 0)
	assert.False(t, ok)
}

func TestHasCodePrefix(t *testing.T) {
	assert.True(t, HasCodePrefix("9401610000", nil))
	assert.True(t, HasCodePrefix("9401610000", []string{"70", "94"}))
	assert.False(t, HasCodePrefix("8501610000", []string{"70", "94"}))
}
