package locator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

func TestLocatePreferredColumn(t *testing.T) {
	row := types.TextRow("001", "Sofa Grand", "10", "1500")
	spec := NewFieldSpec("quantity", Numeric(), 2, First, true)

	val, ok := Locate(row, spec)
	require.True(t, ok)
	assert.Equal(t, 2, val.Column)
	assert.Equal(t, "10", val.Number.String())
}

func TestLocateFallsBackToScan(t *testing.T) {
	tests := []struct {
		name      string
		row       types.RawRow
		preferred int
		policy    Policy
		wantCol   int
		wantValue string
	}{
		{"empty preferred cell", types.TextRow("Sofa", "", "7", "1 500"), 1, First, 2, "7"},
		{"preferred out of range", types.TextRow("Sofa", "7", "1500"), 9, First, 1, "7"},
		{"preferred not numeric", types.TextRow("Sofa", "n/a", "7", "1500"), 1, Last, 3, "1500"},
		{"max picks largest", types.TextRow("Sofa", "7", "1500", "300"), -1, Max, 2, "1500"},
		{"max keeps left-most tie", types.TextRow("Sofa", "300", "300,0"), -1, Max, 1, "300"},
		{"last picks right-most", types.TextRow("7", "Sofa", "1500", "300"), -1, Last, 3, "300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := NewFieldSpec("n", Numeric(), tt.preferred, tt.policy, true)
			val, ok := Locate(tt.row, spec)
			require.True(t, ok)
			assert.Equal(t, tt.wantCol, val.Column)
			assert.Equal(t, tt.wantValue, val.Number.String())
		})
	}
}

func TestLocateNothingValidates(t *testing.T) {
	spec := NewFieldSpec("weight", Numeric(), 1, First, true)
	_, ok := Locate(types.TextRow("Sofa", "", "n/a"), spec)
	assert.False(t, ok)

	_, ok = Locate(types.TextRow("Sofa"), nil)
	assert.False(t, ok)
}

func TestLocateExclusions(t *testing.T) {
	row := types.TextRow("001", "Sofa Grand", "10", "1500")

	// The code column must not be mistaken for a quantity.
	spec := NewFieldSpec("quantity", Numeric(), -1, First, true, 0)
	val, ok := Locate(row, spec)
	require.True(t, ok)
	assert.Equal(t, 2, val.Column)

	// Claimed columns are skipped by scans.
	cost := NewFieldSpec("cost", Numeric(), -1, First, true, 0)
	val, ok = Locate(row, cost, 2)
	require.True(t, ok)
	assert.Equal(t, 3, val.Column)

	// ...but never by a preferred column.
	pinned := NewFieldSpec("cost", Numeric(), 2, First, true)
	val, ok = Locate(row, pinned, 2)
	require.True(t, ok)
	assert.Equal(t, 2, val.Column)
}

func TestPatternScanStrategy(t *testing.T) {
	spec := &FieldSpec{
		Name:      "code",
		Validator: FixedCode(10, nil),
		Strategies: []Strategy{
			PatternScanStrategy{Pattern: regexp.MustCompile(`ТН ВЭД:?\s*([\d ]+)`)},
		},
	}
	row := types.TextRow("Диван угловой", "ТН ВЭД: 9401 61 0000", "2")

	val, ok := Locate(row, spec)
	require.True(t, ok)
	assert.Equal(t, "9401610000", val.Text)
	assert.Equal(t, 1, val.Column)

	_, ok = Locate(types.TextRow("ТН ВЭД: 9401 61 000"), spec)
	assert.False(t, ok)
}

func TestFixedCodePrefixes(t *testing.T) {
	v := FixedCode(10, []string{"70", "94"})

	_, ok := v.Validate(types.Text("9403 60 1000"))
	assert.True(t, ok)

	_, ok = v.Validate(types.Text("8501 60 1000"))
	assert.False(t, ok)
}

func TestRegexpValidator(t *testing.T) {
	v := Regexp(regexp.MustCompile(`^(\d{3})$`))

	val, ok := v.Validate(types.Text(" 001 "))
	require.True(t, ok)
	assert.Equal(t, "001", val.Text)

	_, ok = v.Validate(types.Text("0011"))
	assert.False(t, ok)
}

func TestAggregateScanMaxText(t *testing.T) {
	spec := &FieldSpec{
		Name:       "label",
		Validator:  Regexp(regexp.MustCompile(`\pL+`)),
		Strategies: []Strategy{AggregateScanStrategy{Policy: Max}},
	}
	row := types.RawRow{types.Text("ab"), types.Text("abcd"), types.Number(3), types.Text("wxyz")}

	val, ok := Locate(row, spec)
	require.True(t, ok)
	assert.Equal(t, 1, val.Column)
	assert.Equal(t, "abcd", val.Text)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": First, "first": First, "last": Last, "max": Max} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParsePolicy("largest")
	assert.Error(t, err)
}

func TestHasScan(t *testing.T) {
	assert.True(t, NewFieldSpec("x", Numeric(), 2, First, false).HasScan())
	assert.False(t, (&FieldSpec{Strategies: []Strategy{ColumnStrategy{Index: 1}}}).HasScan())
}
