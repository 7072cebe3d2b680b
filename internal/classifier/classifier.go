// =============================================================================
// Trade Document Reconciler - Row Classifier
// =============================================================================
//
// This module decides whether a row is a genuine line item or something to
// skip (header, subtotal, signature line, OCR noise). The decision is made on
// the row's candidate name only and runs before any numeric field is read.
//
// SKIP RULES (any one is enough):
//   1. The candidate name is empty
//   2. It contains no letter
//   3. It has fewer than MinNameLength non-space characters
//   4. It matches a deny keyword as a whole-word phrase, case-insensitively
//   5. RequireKeywords is set and the name contains none of them
//
// The keyword lists are locale-specific and always come from configuration.
//
// =============================================================================

package classifier

import (
	"strings"
	"unicode"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/locator"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/normalize"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// DefaultMinNameLength is the minimum number of non-space characters a name
// must have when the configuration does not say otherwise.
const DefaultMinNameLength = 3

// Verdict is the outcome of classifying a row.
type Verdict int

const (
	// Skip means the row is not a line item.
	Skip Verdict = iota

	// Item means the row is a line item.
	Item
)

// String returns "item" or "skip".
func (v Verdict) String() string {
	if v == Item {
		return "item"
	}
	return "skip"
}

// Rules are the configurable classification rules.
type Rules struct {
	// DenyKeywords mark header/total rows ("total", "итого", "amount due").
	DenyKeywords []string

	// RequireKeywords, when non-empty, restrict items to names that contain
	// one of the keywords (e.g. product nouns of a furniture catalogue).
	RequireKeywords []string

	// MinNameLength is the minimum count of non-space characters.
	// Zero means DefaultMinNameLength.
	MinNameLength int
}

// Classifier classifies rows using a name FieldSpec built around its rules.
type Classifier struct {
	deny      []string
	require   []string
	minLength int
	name      *locator.FieldSpec
}

// New creates a Classifier. The name field is located with the given
// strategies; the classifier's own rules are the name validator, so a scan
// fallback only ever returns text that would be accepted as a name.
//
// PARAMETERS:
//   - rules: The classification rules.
//   - strategies: The strategy chain for the name field.
//
// RETURNS:
//   - A new Classifier instance.
func New(rules Rules, strategies ...locator.Strategy) *Classifier {
	c := &Classifier{
		minLength: rules.MinNameLength,
	}
	if c.minLength <= 0 {
		c.minLength = DefaultMinNameLength
	}
	for _, kw := range rules.DenyKeywords {
		if folded := foldWords(kw); folded != "" {
			c.deny = append(c.deny, folded)
		}
	}
	for _, kw := range rules.RequireKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.require = append(c.require, kw)
		}
	}
	if len(strategies) == 0 {
		strategies = []locator.Strategy{locator.AggregateScanStrategy{Policy: locator.First}}
	}
	c.name = &locator.FieldSpec{
		Name:       "name",
		Validator:  locator.ValidatorFunc(c.validateName),
		Strategies: strategies,
		Required:   true,
	}
	return c
}

// NameSpec returns the FieldSpec used to locate the candidate name.
func (c *Classifier) NameSpec() *locator.FieldSpec {
	return c.name
}

// Classify returns Item and the located name when the row is a line item,
// or Skip and a zero Value otherwise.
//
// A row is skipped outright when a denied keyword sits where the name is
// expected: in a preferred name column, or, for a scan-only name chain, in
// any text cell. Otherwise a totals line ("Total", 15, 1800, "USD") would
// fall through to the scan and pick up another text cell as its name.
func (c *Classifier) Classify(row types.RawRow) (Verdict, locator.Value) {
	if c.deniedRow(row) {
		return Skip, locator.Value{}
	}
	val, ok := locator.Locate(row, c.name)
	if !ok {
		return Skip, locator.Value{}
	}
	return Item, val
}

// Accepts reports whether text passes every name rule.
func (c *Classifier) Accepts(text string) bool {
	text = normalize.CleanText(types.Text(text))
	if text == "" {
		return false
	}

	letters, length := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		length++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters == 0 || length < c.minLength {
		return false
	}

	if c.Denied(text) {
		return false
	}

	if len(c.require) > 0 {
		lower := strings.ToLower(text)
		for _, kw := range c.require {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}

	return true
}

// Denied reports whether text contains a deny keyword as a whole word.
func (c *Classifier) Denied(text string) bool {
	if len(c.deny) == 0 {
		return false
	}
	padded := " " + foldWords(text) + " "
	for _, kw := range c.deny {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

func (c *Classifier) deniedRow(row types.RawRow) bool {
	if len(c.deny) == 0 {
		return false
	}
	preferred := false
	for _, s := range c.name.Strategies {
		col, ok := s.(locator.ColumnStrategy)
		if !ok {
			continue
		}
		preferred = true
		if cell := row.At(col.Index); cell.Kind == types.CellText && c.Denied(cell.Text) {
			return true
		}
	}
	if preferred {
		return false
	}
	for _, cell := range row {
		if cell.Kind == types.CellText && c.Denied(cell.Text) {
			return true
		}
	}
	return false
}

func (c *Classifier) validateName(cell types.Cell) (locator.Value, bool) {
	// Native numbers are never names.
	if cell.Kind != types.CellText {
		return locator.Value{}, false
	}
	text := normalize.CleanText(cell)
	if !c.Accepts(text) {
		return locator.Value{}, false
	}
	return locator.Value{Text: text}, true
}

// foldWords lower-cases s and turns every run of non-alphanumeric characters
// into a single space, so "TOTAL:" and "Итого по счёту" compare word-wise.
func foldWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
