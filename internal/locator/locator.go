// =============================================================================
// Trade Document Reconciler - Field Locator
// =============================================================================
//
// This module finds one semantic field (name, code, quantity, cost, weight)
// within a row. Documents are tabular but their column positions drift from
// template to template, so a field is never read from a fixed column only.
// Instead every FieldSpec carries an ordered list of strategies that are
// evaluated in sequence until one produces a valid value:
//
//   | Strategy              | Behaviour                                        |
//   |-----------------------|--------------------------------------------------|
//   | ColumnStrategy        | validate one preferred column                    |
//   | PatternScanStrategy   | first cell whose text matches a regexp           |
//   | AggregateScanStrategy | all validating cells, pick first / last / max    |
//
// EXCLUSIONS:
//   Scans skip the field's ExcludeColumns plus the "claimed" columns passed by
//   the caller (columns already consumed by other fields of the same row).
//   Column strategies are never excluded.
//
// COST:
//   A scan is O(columns); a row costs O(fields x columns).
//
// =============================================================================

package locator

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/normalize"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// =============================================================================
// VALUES AND VALIDATORS
// =============================================================================

// Value is a located field value.
type Value struct {
	// Column is the 0-based column the value was read from.
	Column int

	// Text is the cleaned textual value (for numbers, their text form).
	Text string

	// Number is set when IsNumber is true.
	Number   decimal.Decimal
	IsNumber bool
}

// Validator decides whether a cell holds a value for a field and returns
// the interpreted value. The Column of the returned Value is filled in by
// the strategy.
type Validator interface {
	Validate(cell types.Cell) (Value, bool)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(cell types.Cell) (Value, bool)

// Validate calls f(cell).
func (f ValidatorFunc) Validate(cell types.Cell) (Value, bool) {
	return f(cell)
}

// Numeric accepts any cell normalize.ToNumber can parse.
func Numeric() Validator {
	return ValidatorFunc(func(cell types.Cell) (Value, bool) {
		n := normalize.ToNumber(cell)
		if !n.Valid {
			return Value{}, false
		}
		return Value{Text: n.Decimal.String(), Number: n.Decimal, IsNumber: true}, true
	})
}

// FixedCode accepts cells holding exactly length digits (separators are
// ignored) that start with one of prefixes, when prefixes are given.
func FixedCode(length int, prefixes []string) Validator {
	return ValidatorFunc(func(cell types.Cell) (Value, bool) {
		code, ok := normalize.ExtractFixedDigitCode(cell, length)
		if !ok || !normalize.HasCodePrefix(code, prefixes) {
			return Value{}, false
		}
		return Value{Text: code}, true
	})
}

// Regexp accepts cells whose cleaned text matches re. When re has a
// capturing group, the first group becomes the value.
func Regexp(re *regexp.Regexp) Validator {
	return ValidatorFunc(func(cell types.Cell) (Value, bool) {
		text := normalize.CleanText(cell)
		if text == "" {
			return Value{}, false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return Value{}, false
		}
		if len(m) > 1 && m[1] != "" {
			return Value{Text: m[1]}, true
		}
		return Value{Text: m[0]}, true
	})
}

// =============================================================================
// STRATEGIES
// =============================================================================

// Policy selects a value among all validating cells of an aggregate scan.
type Policy int

const (
	// First returns the left-most validating value.
	First Policy = iota

	// Last returns the right-most validating value.
	Last

	// Max returns the largest value: numbers by value, text by rune length.
	// Ties keep the left-most value.
	Max
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "first":
		return First, nil
	case "last":
		return Last, nil
	case "max":
		return Max, nil
	default:
		return First, fmt.Errorf("unknown fallback policy %q (want first, last or max)", s)
	}
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case Last:
		return "last"
	case Max:
		return "max"
	default:
		return "first"
	}
}

// Strategy is one step of a field's heuristic chain.
type Strategy interface {
	locate(row types.RawRow, v Validator, skip func(col int) bool) (Value, bool)
	String() string
}

// ColumnStrategy validates a single preferred column.
type ColumnStrategy struct {
	Index int
}

func (s ColumnStrategy) locate(row types.RawRow, v Validator, _ func(int) bool) (Value, bool) {
	if s.Index < 0 || s.Index >= len(row) {
		return Value{}, false
	}
	val, ok := v.Validate(row[s.Index])
	if !ok {
		return Value{}, false
	}
	val.Column = s.Index
	return val, true
}

func (s ColumnStrategy) String() string {
	return fmt.Sprintf("column(%d)", s.Index)
}

// PatternScanStrategy scans left to right for the first cell whose cleaned
// text contains a match of Pattern. The match (or its first group) is then
// handed to the validator as a text cell.
type PatternScanStrategy struct {
	Pattern *regexp.Regexp
}

func (s PatternScanStrategy) locate(row types.RawRow, v Validator, skip func(int) bool) (Value, bool) {
	for i, cell := range row {
		if skip(i) {
			continue
		}
		m := s.Pattern.FindStringSubmatch(normalize.CleanText(cell))
		if m == nil {
			continue
		}
		candidate := m[0]
		if len(m) > 1 && m[1] != "" {
			candidate = m[1]
		}
		val, ok := v.Validate(types.Text(candidate))
		if !ok {
			continue
		}
		val.Column = i
		return val, true
	}
	return Value{}, false
}

func (s PatternScanStrategy) String() string {
	return fmt.Sprintf("pattern_scan(%s)", s.Pattern)
}

// AggregateScanStrategy validates every non-excluded cell and returns one of
// the validating values according to Policy.
type AggregateScanStrategy struct {
	Policy Policy
}

func (s AggregateScanStrategy) locate(row types.RawRow, v Validator, skip func(int) bool) (Value, bool) {
	var best Value
	found := false
	for i, cell := range row {
		if skip(i) {
			continue
		}
		val, ok := v.Validate(cell)
		if !ok {
			continue
		}
		val.Column = i
		if !found {
			best, found = val, true
			if s.Policy == First {
				return best, true
			}
			continue
		}
		switch s.Policy {
		case Last:
			best = val
		case Max:
			if greater(val, best) {
				best = val
			}
		}
	}
	return best, found
}

func (s AggregateScanStrategy) String() string {
	return fmt.Sprintf("aggregate_scan(%s)", s.Policy)
}

func greater(a, b Value) bool {
	if a.IsNumber && b.IsNumber {
		return a.Number.GreaterThan(b.Number)
	}
	return utf8.RuneCountInString(a.Text) > utf8.RuneCountInString(b.Text)
}

// =============================================================================
// FIELD SPEC
// =============================================================================

// FieldSpec is the declarative description of how to locate one field.
type FieldSpec struct {
	// Name is the semantic field name ("name", "code", "quantity", ...).
	Name string

	// Validator is the content pattern every candidate cell must satisfy.
	Validator Validator

	// Strategies are evaluated in order; the first hit wins.
	Strategies []Strategy

	// Required marks the field as mandatory for the row to be kept.
	Required bool

	// ExcludeColumns are never considered by scans.
	ExcludeColumns []int
}

// NewFieldSpec builds a FieldSpec from the classic "preferred column +
// fallback policy" description. preferred < 0 means no preferred column.
// The resulting chain is column(preferred) then aggregate_scan(policy).
func NewFieldSpec(name string, v Validator, preferred int, policy Policy, required bool, exclude ...int) *FieldSpec {
	var strategies []Strategy
	if preferred >= 0 {
		strategies = append(strategies, ColumnStrategy{Index: preferred})
	}
	strategies = append(strategies, AggregateScanStrategy{Policy: policy})
	return &FieldSpec{
		Name:           name,
		Validator:      v,
		Strategies:     strategies,
		Required:       required,
		ExcludeColumns: exclude,
	}
}

// Locate runs the field's strategy chain over row. claimed lists columns
// already consumed by other fields of the same row; scans skip them.
//
// RETURNS:
//   - The located value and true, or a zero Value and false when nothing
//     validates. Whether that is fatal for the row is the caller's decision.
func Locate(row types.RawRow, spec *FieldSpec, claimed ...int) (Value, bool) {
	if spec == nil || spec.Validator == nil {
		return Value{}, false
	}
	skip := func(col int) bool {
		for _, c := range spec.ExcludeColumns {
			if c == col {
				return true
			}
		}
		for _, c := range claimed {
			if c == col {
				return true
			}
		}
		return false
	}
	for _, s := range spec.Strategies {
		if val, ok := s.locate(row, spec.Validator, skip); ok {
			return val, true
		}
	}
	return Value{}, false
}

// HasScan reports whether the chain contains a scan-based strategy.
func (s *FieldSpec) HasScan() bool {
	for _, st := range s.Strategies {
		switch st.(type) {
		case PatternScanStrategy, AggregateScanStrategy:
			return true
		}
	}
	return false
}
