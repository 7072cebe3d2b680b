// =============================================================================
// Trade Document Reconciler - Record Extractor
// =============================================================================
//
// This module turns the rows of one document into ItemRecords. It is the
// only place where the Cell Normalizer, the Field Locator and the Row
// Classifier meet.
//
// EXTRACTION PIPELINE (per row, in document order):
//   1. Classify the row; SKIP rows are discarded
//   2. Resolve the fields in order: name, code, quantity, cost, weight
//      (every resolved column is claimed and skipped by later scans)
//   3. Drop the row if a required field is missing (ExtractionGap)
//   4. Number the retained records 1..n (SourceOrder, contiguous)
//
// MODES:
//   | Mode       | Document role        | Required fields         |
//   |------------|----------------------|-------------------------|
//   | ModeCost   | primary (pro-forma)  | name, quantity, cost    |
//   | ModeWeight | secondary (waybill)  | name, weight            |
//   A FieldSpec marked Required adds to the mode's set.
//
// Extraction is a pure function of the rows; nothing is modified in place.
//
// =============================================================================

package extractor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/classifier"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/identity"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/locator"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/normalize"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// =============================================================================
// MODES
// =============================================================================

// Mode selects the set of required fields.
type Mode int

const (
	// ModeCost extracts cost-bearing records (name + quantity + cost).
	ModeCost Mode = iota

	// ModeWeight extracts weight-bearing records (name + weight).
	ModeWeight
)

// Field names used in specs, gaps and logs.
const (
	FieldName     = "name"
	FieldCode     = "code"
	FieldQuantity = "quantity"
	FieldCost     = "cost"
	FieldWeight   = "weight"
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeWeight {
		return "weight"
	}
	return "cost"
}

func (m Mode) requires(field string) bool {
	switch m {
	case ModeCost:
		return field == FieldName || field == FieldQuantity || field == FieldCost
	case ModeWeight:
		return field == FieldName || field == FieldWeight
	}
	return false
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema describes how records are extracted from one document role.
type Schema struct {
	// Role names the document in errors and logs ("primary", "secondary").
	Role string

	// Mode selects the required fields.
	Mode Mode

	// Classifier decides item rows and locates the name.
	Classifier *classifier.Classifier

	// Field specs. A nil spec is not extracted.
	Code     *locator.FieldSpec
	Quantity *locator.FieldSpec
	Cost     *locator.FieldSpec
	Weight   *locator.FieldSpec

	// MinColumns is the minimum width of the widest row. Narrower documents
	// are rejected as invalid input.
	MinColumns int

	// MaxRows and MaxColumns bound the work per document. Zero disables
	// the check.
	MaxRows    int
	MaxColumns int
}

// Extraction is the outcome of extracting one document.
type Extraction struct {
	// Records are the retained item records in document order.
	Records []types.ItemRecord

	// Rows is the number of input rows.
	Rows int

	// Items is the number of rows classified as ITEM.
	Items int

	// Skipped is the number of rows classified as SKIP.
	Skipped int

	// Gaps lists ITEM rows dropped for a missing required field.
	Gaps []*docerrors.Error
}

// Extractor extracts ItemRecords from documents of one role.
// It holds no per-run state and is safe for concurrent use.
type Extractor struct {
	schema Schema
	logger *slog.Logger
}

// New creates an Extractor after checking that the schema can satisfy its
// mode.
//
// PARAMETERS:
//   - schema: The extraction schema.
//   - logger: The logger; nil means slog.Default().
//
// RETURNS:
//   - A new Extractor, or an error if a field required by the mode has no
//     spec.
func New(schema Schema, logger *slog.Logger) (*Extractor, error) {
	if schema.Classifier == nil {
		return nil, errors.New("extractor: schema has no classifier")
	}
	if schema.Role == "" {
		schema.Role = schema.Mode.String()
	}
	for _, f := range schema.fields() {
		if f.spec == nil && schema.Mode.requires(f.name) {
			return nil, fmt.Errorf("extractor: %s mode requires a %s field", schema.Mode, f.name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		schema: schema,
		logger: logger.With(slog.String("component", "extractor"), slog.String("document", schema.Role)),
	}, nil
}

// Schema returns the extractor's schema.
func (e *Extractor) Schema() Schema {
	return e.schema
}

type field struct {
	name string
	spec *locator.FieldSpec
}

func (s Schema) fields() []field {
	return []field{
		{FieldCode, s.Code},
		{FieldQuantity, s.Quantity},
		{FieldCost, s.Cost},
		{FieldWeight, s.Weight},
	}
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract runs the extraction pipeline over doc.
//
// RETURNS:
//   - The Extraction with retained records and row-level gaps.
//   - An InvalidInput error when the document is missing, too wide, too
//     long or too narrow for the schema.
//   - A MalformedDocument error when the document has no rows, no ITEM rows
//     or no record survived the required-field check.
func (e *Extractor) Extract(doc *types.Document) (*Extraction, error) {
	if err := e.checkDocument(doc); err != nil {
		return nil, err
	}

	result := &Extraction{Rows: len(doc.Rows)}

	for i, row := range doc.Rows {
		verdict, name := e.schema.Classifier.Classify(row)
		if verdict == classifier.Skip {
			result.Skipped++
			continue
		}
		result.Items++

		record, gap := e.extractRow(i, row, name)
		if gap != nil {
			e.logger.Debug("row dropped",
				slog.Int("row", i+1),
				slog.String("field", gap.Field),
				slog.String("name", name.Text))
			result.Gaps = append(result.Gaps, gap)
			continue
		}

		record.SourceOrder = len(result.Records) + 1
		result.Records = append(result.Records, record)
	}

	switch {
	case result.Items == 0:
		return nil, docerrors.Malformed(e.schema.Role,
			"no usable records: none of %d rows looks like a line item", result.Rows)
	case len(result.Records) == 0:
		return nil, docerrors.Malformed(e.schema.Role,
			"no usable records: all %d item rows are missing required fields", result.Items)
	}

	return result, nil
}

func (e *Extractor) checkDocument(doc *types.Document) error {
	role := e.schema.Role
	if doc == nil {
		return docerrors.Invalid(role, "document is missing")
	}
	if e.schema.MaxRows > 0 && len(doc.Rows) > e.schema.MaxRows {
		return docerrors.Invalid(role, "document has %d rows, the limit is %d", len(doc.Rows), e.schema.MaxRows)
	}
	if len(doc.Rows) == 0 {
		return docerrors.Malformed(role, "no usable records: document has no rows")
	}
	width := doc.Width()
	if e.schema.MaxColumns > 0 && width > e.schema.MaxColumns {
		return docerrors.Invalid(role, "document has %d columns, the limit is %d", width, e.schema.MaxColumns)
	}
	if width < e.schema.MinColumns {
		return docerrors.Invalid(role, "document has %d columns, at least %d are needed", width, e.schema.MinColumns)
	}
	return nil
}

// extractRow resolves every field of an ITEM row. It returns a gap instead of
// a record when a required field is missing.
func (e *Extractor) extractRow(index int, row types.RawRow, name locator.Value) (types.ItemRecord, *docerrors.Error) {
	record := types.ItemRecord{
		Name:      name.Text,
		Key:       identity.Normalize(name.Text),
		SourceRow: index,
	}
	claimed := []int{name.Column}

	for _, f := range e.schema.fields() {
		if f.spec == nil {
			continue
		}
		val, ok := locator.Locate(row, f.spec, claimed...)
		var num decimal.NullDecimal
		if ok && f.name != FieldCode {
			num = numberOf(val)
			ok = num.Valid
		}
		if !ok {
			if f.spec.Required || e.schema.Mode.requires(f.name) {
				return types.ItemRecord{}, docerrors.Gap(e.schema.Role, index, f.name)
			}
			continue
		}
		claimed = append(claimed, val.Column)

		switch f.name {
		case FieldCode:
			record.Code = val.Text
		case FieldQuantity:
			record.Quantity = num
		case FieldCost:
			record.Cost = num
		case FieldWeight:
			record.Weight = num
		}
	}

	return record, nil
}

// numberOf converts a located value to a number. Values found by text
// validators (e.g. a regexp) are parsed from their text.
func numberOf(val locator.Value) decimal.NullDecimal {
	if val.IsNumber {
		return decimal.NewNullDecimal(val.Number)
	}
	return normalize.ToNumber(types.Text(val.Text))
}
