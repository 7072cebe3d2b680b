// =============================================================================
// Trade Document Reconciler - Error Taxonomy
// =============================================================================
//
// This package defines the errors produced while turning two documents into a
// summary table. Every failure carries a Kind so callers can decide what to
// do with it:
//
//   | Kind              | Scope    | Effect                                  |
//   |-------------------|----------|-----------------------------------------|
//   | ExtractionGap     | row      | row dropped, run continues              |
//   | MalformedDocument | document | run aborted ("no usable records")       |
//   | UnjoinableRecord  | record   | secondary record dropped, never raised  |
//   | InvalidInput      | document | run aborted before any extraction       |
//
// ERROR HANDLING:
//   - Row-level errors are collected, not returned
//   - Document-level errors abort the run; no partial table is returned
//   - errors.Is works against the package sentinels (ErrInvalidInput, ...)
//
// =============================================================================

package docerrors

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies an Error.
type Kind int

const (
	// ExtractionGap: a required field is missing in a row.
	ExtractionGap Kind = iota + 1

	// MalformedDocument: a document yields zero rows or zero usable records.
	MalformedDocument

	// UnjoinableRecord: a secondary record matches no primary record.
	UnjoinableRecord

	// InvalidInput: a document is missing or structurally unusable.
	InvalidInput
)

// String returns the kind name used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case ExtractionGap:
		return "extraction_gap"
	case MalformedDocument:
		return "malformed_document"
	case UnjoinableRecord:
		return "unjoinable_record"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR STRUCTURE
// =============================================================================

// Error is a single reconciliation failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Document is the document role ("primary" or "secondary").
	Document string

	// Row is the 0-based input row index, or -1 for document-level errors.
	Row int

	// Field is the field that could not be resolved (row-level errors only).
	Field string

	// Message is a human-readable description.
	Message string
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrExtractionGap     = &Error{Kind: ExtractionGap}
	ErrMalformedDocument = &Error{Kind: MalformedDocument}
	ErrUnjoinableRecord  = &Error{Kind: UnjoinableRecord}
	ErrInvalidInput      = &Error{Kind: InvalidInput}
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Document != "" {
		b.WriteString(e.Document)
		b.WriteString(" document")
	}
	if e.Row >= 0 && (e.Kind == ExtractionGap || e.Kind == UnjoinableRecord) {
		fmt.Fprintf(&b, ", row %d", e.Row+1)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", e.Field)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Gap returns an ExtractionGap for a row whose required field is missing.
func Gap(document string, row int, field string) *Error {
	return &Error{
		Kind:     ExtractionGap,
		Document: document,
		Row:      row,
		Field:    field,
		Message:  "required field not found",
	}
}

// Unjoinable returns an UnjoinableRecord notice for a secondary record whose
// key matched no primary record.
func Unjoinable(document string, row int, name string) *Error {
	return &Error{
		Kind:     UnjoinableRecord,
		Document: document,
		Row:      row,
		Message:  fmt.Sprintf("no primary record matches %q", name),
	}
}

// Malformed returns a MalformedDocument error.
func Malformed(document, format string, args ...any) *Error {
	return &Error{
		Kind:     MalformedDocument,
		Document: document,
		Row:      -1,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Invalid returns an InvalidInput error.
func Invalid(document, format string, args ...any) *Error {
	return &Error{
		Kind:     InvalidInput,
		Document: document,
		Row:      -1,
		Message:  fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatErrors formats row-level errors for display or a log file.
//
// PARAMETERS:
//   - errs: The errors to format.
//
// RETURNS:
//   - A formatted string containing all errors, one per line.
func FormatErrors(errs []*Error) string {
	if len(errs) == 0 {
		return "No extraction gaps."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Extraction completed with %d gap(s):\n\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}
