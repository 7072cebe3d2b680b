// Package normalize holds the pure value-cleaning functions applied to raw
// table cells: numeric parsing, text cleanup and fixed-length code extraction.
//
// None of these functions fail loudly. A value that cannot be interpreted is
// reported as absent and the caller decides what that means for the row.
package normalize

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// absent is the zero NullDecimal, spelled out for readability.
var absent = decimal.NullDecimal{}

// ToNumber interprets a cell as a number.
//
// Native numbers pass through. Text has every kind of whitespace removed
// (including NBSP and narrow NBSP used as thousands separators), a comma
// decimal separator is converted to a dot and the result is parsed. When both
// ',' and '.' appear, the right-most one is the decimal separator.
//
// Returns an invalid NullDecimal when the cell is empty or does not parse.
func ToNumber(cell types.Cell) decimal.NullDecimal {
	switch cell.Kind {
	case types.CellNumber:
		if math.IsNaN(cell.Number) || math.IsInf(cell.Number, 0) {
			return absent
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(cell.Number))
	case types.CellText:
		return parseNumber(cell.Text)
	default:
		return absent
	}
}

func parseNumber(s string) decimal.NullDecimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return absent
	}

	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// 1.500,50
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,500.50
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return absent
	}
	return decimal.NewNullDecimal(d)
}

// CleanText returns the cell as single-spaced, trimmed text. Newlines, tabs
// and non-breaking spaces count as whitespace. Numbers are rendered in their
// shortest decimal form; empty cells give "".
func CleanText(cell types.Cell) string {
	switch cell.Kind {
	case types.CellNumber:
		if math.IsNaN(cell.Number) || math.IsInf(cell.Number, 0) {
			return ""
		}
		return decimal.NewFromFloat(cell.Number).String()
	case types.CellText:
		return strings.Join(strings.Fields(cell.Text), " ")
	default:
		return ""
	}
}

// ExtractFixedDigitCode strips every non-digit character from the cell and
// accepts the remainder only when it has exactly length digits. Near misses
// are never padded or truncated.
func ExtractFixedDigitCode(cell types.Cell, length int) (string, bool) {
	if length <= 0 {
		return "", false
	}
	var b strings.Builder
	for _, r := range CleanText(cell) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != length {
		return "", false
	}
	return b.String(), true
}

// HasCodePrefix reports whether code starts with one of prefixes.
// An empty prefix list accepts every code.
func HasCodePrefix(code string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
