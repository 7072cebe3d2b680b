// =============================================================================
// Trade Document Reconciler - Renderers
// =============================================================================
//
// This module renders a SummaryTable for people and other programs. Totals
// are computed exactly upstream; rounding to the configured precision
// happens here and nowhere else.
//
// OUTPUT FORMATS:
//   | Format | Writer    | Library                 |
//   |--------|-----------|-------------------------|
//   | xlsx   | WriteXLSX | excelize                |
//   | html   | WriteHTML | html/template           |
//   | json   | WriteJSON | encoding/json (NewView) |
//   | xml    | WriteXML  | encoding/xml            |
//
// COLUMN ORDER:
//   No | Code | Name | Weight | Quantity | Cost
//
// =============================================================================

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// Format is an output format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat converts a user-supplied format name. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatHTML, FormatJSON, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want xlsx, html, json or xml)", s)
	}
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}

// Options control presentation.
type Options struct {
	// Headers are the column titles.
	Headers config.HeaderSettings

	// Decimal places per column.
	QuantityPrecision int32
	CostPrecision     int32
	WeightPrecision   int32

	// Title is used by the HTML page and the XLSX sheet name.
	Title string
}

// DefaultOptions returns the options of the built-in template.
func DefaultOptions() Options {
	return OptionsFrom(config.DefaultTemplate())
}

// OptionsFrom builds Options from a template's output settings.
func OptionsFrom(tmpl *config.TemplateConfig) Options {
	out := tmpl.Output
	opts := Options{
		Headers:           out.Headers,
		QuantityPrecision: 3,
		CostPrecision:     2,
		WeightPrecision:   2,
		Title:             "Summary",
	}
	if out.QuantityPrecision != nil {
		opts.QuantityPrecision = *out.QuantityPrecision
	}
	if out.CostPrecision != nil {
		opts.CostPrecision = *out.CostPrecision
	}
	if out.WeightPrecision != nil {
		opts.WeightPrecision = *out.WeightPrecision
	}
	if tmpl.TemplateName != "" {
		opts.Title = tmpl.TemplateName
	}
	return opts
}

// Write renders table in the given format.
func Write(format Format, w io.Writer, table *types.SummaryTable, opts Options) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, table, opts)
	case FormatHTML:
		return WriteHTML(w, table, opts)
	case FormatJSON:
		return WriteJSON(w, table, opts)
	case FormatXML:
		return WriteXML(w, table, opts)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View is the presentation form of a SummaryTable: every number is rounded
// and formatted, absent values are nil.
type View struct {
	Headers []string  `json:"headers"`
	Rows    []RowView `json:"rows"`
	Totals  RowView   `json:"totals"`
}

// RowView is one rendered row. The totals row has Number 0 and its label
// in Name.
type RowView struct {
	Number   int     `json:"number,omitempty"`
	Code     string  `json:"code,omitempty"`
	Name     string  `json:"name"`
	Weight   *string `json:"weight"`
	Quantity *string `json:"quantity"`
	Cost     *string `json:"cost"`
}

// Cells returns the row as display strings in column order.
func (r RowView) Cells() []string {
	number := ""
	if r.Number > 0 {
		number = fmt.Sprint(r.Number)
	}
	return []string{number, r.Code, r.Name, deref(r.Weight), deref(r.Quantity), deref(r.Cost)}
}

// NewView builds the presentation form of table.
func NewView(table *types.SummaryTable, opts Options) *View {
	h := opts.Headers
	view := &View{
		Headers: []string{h.Number, h.Code, h.Name, h.Weight, h.Quantity, h.Cost},
		Rows:    make([]RowView, 0, len(table.Rows)),
	}

	for _, row := range table.Rows {
		view.Rows = append(view.Rows, RowView{
			Number:   row.Number,
			Code:     row.Code,
			Name:     row.Name,
			Weight:   fixed(row.Weight, opts.WeightPrecision),
			Quantity: fixed(row.Quantity, opts.QuantityPrecision),
			Cost:     fixed(row.Cost, opts.CostPrecision),
		})
	}

	t := table.Totals
	view.Totals = RowView{
		Name:     t.Label,
		Weight:   fixed(decimal.NewNullDecimal(t.Weight), opts.WeightPrecision),
		Quantity: fixed(decimal.NewNullDecimal(t.Quantity), opts.QuantityPrecision),
		Cost:     fixed(decimal.NewNullDecimal(t.Cost), opts.CostPrecision),
	}
	return view
}

// WriteJSON writes the view as indented JSON.
func WriteJSON(w io.Writer, table *types.SummaryTable, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewView(table, opts))
}

func fixed(n decimal.NullDecimal, places int32) *string {
	if !n.Valid {
		return nil
	}
	s := n.Decimal.StringFixed(places)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
