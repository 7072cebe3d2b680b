package config

import (
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// TEMPLATE CONFIGURATION STRUCTURE
// =============================================================================

// TemplateConfig describes one pair of document layouts: a cost-bearing
// primary document (pro-forma invoice) and a weight-bearing secondary
// document (waybill / packing list), plus how to join and present them.
type TemplateConfig struct {
	// =========================================================================
	// TEMPLATE IDENTIFICATION
	// =========================================================================

	// TemplateName is the human-readable name used in logs and listings.
	TemplateName string `yaml:"template_name" validate:"required"`

	// TemplateCode is the short code used to select the template and in
	// output file names. Defaults to the file name without extension.
	TemplateCode string `yaml:"template_code"`

	// FileMatchingPatterns are glob patterns matched against the primary
	// document's file name when no template is named explicitly.
	//
	// Examples:
	//   - "proforma_*.xlsx"
	//   - "*_invoice_*.csv"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// EXTRACTION SETTINGS
	// =========================================================================

	// Classification holds the row classification rules shared by both
	// documents.
	Classification ClassificationSettings `yaml:"classification"`

	// Code describes the product classification code format.
	Code CodeSettings `yaml:"code"`

	// Primary is the cost-bearing document layout.
	Primary DocumentSettings `yaml:"primary"`

	// Secondary is the weight-bearing document layout.
	Secondary DocumentSettings `yaml:"secondary"`

	// =========================================================================
	// JOIN AND OUTPUT
	// =========================================================================

	Join   JoinSettings   `yaml:"join"`
	Output OutputSettings `yaml:"output"`
}

// ClassificationSettings configures the row classifier. Keyword lists are
// locale-specific.
type ClassificationSettings struct {
	// DenyKeywords mark header and total rows. Matched as whole words,
	// case-insensitively.
	DenyKeywords []string `yaml:"deny_keywords"`

	// RequireKeywords, when set, restrict items to names containing one of
	// them.
	RequireKeywords []string `yaml:"require_keywords"`

	// MinNameLength is the minimum count of non-space characters in a name.
	// Default: 3
	MinNameLength int `yaml:"min_name_length" validate:"gte=0"`
}

// CodeSettings describes fixed-length product codes.
type CodeSettings struct {
	// Length is the number of digits. Default: 10
	Length int `yaml:"length" validate:"gte=0"`

	// Prefixes restrict accepted codes to the given leading digits.
	Prefixes []string `yaml:"prefixes" validate:"dive,numeric"`
}

// DocumentSettings describes one document layout.
type DocumentSettings struct {
	// Sheet selects the XLSX worksheet by name. Default: the first sheet.
	Sheet string `yaml:"sheet"`

	// TableIndex selects the HTML table. Default: 0
	TableIndex int `yaml:"table_index" validate:"gte=0"`

	// Encoding is the CSV character encoding: utf-8, windows-1251, koi8-r.
	// Default: "utf-8"
	Encoding string `yaml:"encoding" validate:"omitempty,oneof=utf-8 windows-1251 koi8-r"`

	// Delimiter is the CSV field separator. Default: ","
	Delimiter string `yaml:"delimiter" validate:"omitempty,len=1"`

	// SkipRows drops leading rows (titles, addresses) before extraction.
	SkipRows int `yaml:"skip_rows" validate:"gte=0"`

	// MinColumns overrides the minimum document width. Zero means the number
	// of fields required by the document's mode.
	MinColumns int `yaml:"min_columns" validate:"gte=0"`

	// Fields maps field names (name, code, quantity, cost, weight) to their
	// location settings. A field required by the mode but not listed here is
	// located by scanning only.
	Fields map[string]FieldSettings `yaml:"fields" validate:"dive"`
}

// FieldSettings describes how to locate one field.
type FieldSettings struct {
	// Column is the preferred 0-based column.
	Column *int `yaml:"column" validate:"omitempty,gte=0"`

	// Pattern is the content validator: text, number, fixed_code or regex.
	// Default: number for quantity, cost and weight; fixed_code for code.
	Pattern string `yaml:"pattern" validate:"omitempty,oneof=text number fixed_code regex"`

	// Regex is the expression used by the regex pattern.
	Regex string `yaml:"regex" validate:"required_if=Pattern regex"`

	// Required adds the field to the mode's required set.
	Required bool `yaml:"required"`

	// Fallback is the aggregate scan policy used when the preferred column
	// does not validate: first, last or max. Default: first
	Fallback string `yaml:"fallback" validate:"omitempty,oneof=first last max none"`

	// ExcludeColumns are never scanned for this field.
	ExcludeColumns []int `yaml:"exclude_columns" validate:"dive,gte=0"`

	// Strategies, when set, replace the column + fallback chain entirely.
	Strategies []StrategySettings `yaml:"strategies" validate:"dive"`
}

// StrategySettings is one explicit step of a field's strategy chain.
type StrategySettings struct {
	// Type is column, pattern_scan or aggregate_scan.
	Type string `yaml:"type" validate:"required,oneof=column pattern_scan aggregate_scan"`

	// Column is used by the column strategy.
	Column int `yaml:"column" validate:"gte=0"`

	// Pattern is the regular expression used by pattern_scan.
	Pattern string `yaml:"pattern" validate:"required_if=Type pattern_scan"`

	// Policy is used by aggregate_scan: first, last or max.
	Policy string `yaml:"policy" validate:"omitempty,oneof=first last max"`
}

// JoinSettings configures the reconciliation join.
type JoinSettings struct {
	// ConflictPolicy resolves duplicate secondary keys: last_wins or
	// first_wins. Default: "last_wins"
	ConflictPolicy string `yaml:"conflict_policy" validate:"omitempty,oneof=last_wins first_wins"`
}

// OutputSettings configures the summary table presentation.
type OutputSettings struct {
	// TotalsLabel labels the totals row. Default: "TOTAL"
	TotalsLabel string `yaml:"totals_label"`

	// Headers are the column titles of rendered tables.
	Headers HeaderSettings `yaml:"headers"`

	// Rendering precision (decimal places). Totals are computed exactly and
	// only rounded when rendered.
	// Default: quantity 3, cost 2, weight 2
	QuantityPrecision *int32 `yaml:"quantity_precision" validate:"omitempty,gte=0,lte=10"`
	CostPrecision     *int32 `yaml:"cost_precision" validate:"omitempty,gte=0,lte=10"`
	WeightPrecision   *int32 `yaml:"weight_precision" validate:"omitempty,gte=0,lte=10"`
}

// HeaderSettings are the rendered column titles.
type HeaderSettings struct {
	Number   string `yaml:"number"`
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Weight   string `yaml:"weight"`
	Quantity string `yaml:"quantity"`
	Cost     string `yaml:"cost"`
}

// Known field names of a document layout.
const (
	FieldName     = "name"
	FieldCode     = "code"
	FieldQuantity = "quantity"
	FieldCost     = "cost"
	FieldWeight   = "weight"
)

func knownField(name string) bool {
	switch name {
	case FieldName, FieldCode, FieldQuantity, FieldCost, FieldWeight:
		return true
	}
	return false
}

// =============================================================================
// DEFAULTS
// =============================================================================

// applyTemplateConfigDefaults sets default values for any unset template options.
func applyTemplateConfigDefaults(config *TemplateConfig) {
	if config.Code.Length == 0 {
		config.Code.Length = 10
	}
	for _, doc := range []*DocumentSettings{&config.Primary, &config.Secondary} {
		if doc.Encoding == "" {
			doc.Encoding = "utf-8"
		}
		if doc.Delimiter == "" {
			doc.Delimiter = ","
		}
	}
	if config.Join.ConflictPolicy == "" {
		config.Join.ConflictPolicy = "last_wins"
	}

	out := &config.Output
	if out.TotalsLabel == "" {
		out.TotalsLabel = "TOTAL"
	}
	if out.QuantityPrecision == nil {
		out.QuantityPrecision = int32Ptr(3)
	}
	if out.CostPrecision == nil {
		out.CostPrecision = int32Ptr(2)
	}
	if out.WeightPrecision == nil {
		out.WeightPrecision = int32Ptr(2)
	}
	h := &out.Headers
	h.Number = orDefault(h.Number, "No")
	h.Code = orDefault(h.Code, "Code")
	h.Name = orDefault(h.Name, "Name")
	h.Weight = orDefault(h.Weight, "Weight")
	h.Quantity = orDefault(h.Quantity, "Quantity")
	h.Cost = orDefault(h.Cost, "Cost")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func int32Ptr(v int32) *int32 { return &v }

func intPtr(v int) *int { return &v }

// DefaultTemplate returns the built-in layout used when no template file is
// configured: code, name, quantity and cost in the first four columns of the
// primary document; name and weight in the first two columns of the
// secondary document. Every field falls back to scanning.
func DefaultTemplate() *TemplateConfig {
	config := &TemplateConfig{
		TemplateName: "Built-in layout",
		TemplateCode: "default",
		Classification: ClassificationSettings{
			DenyKeywords: []string{
				"total", "subtotal", "grand total", "amount due", "name", "description",
				"итого", "всего", "к оплате", "наименование",
			},
		},
		Primary: DocumentSettings{
			Fields: map[string]FieldSettings{
				FieldCode:     {Column: intPtr(0), Pattern: "fixed_code"},
				FieldName:     {Column: intPtr(1)},
				FieldQuantity: {Column: intPtr(2), Fallback: "first"},
				FieldCost:     {Column: intPtr(3), Fallback: "last"},
			},
		},
		Secondary: DocumentSettings{
			Fields: map[string]FieldSettings{
				FieldName:   {Column: intPtr(0)},
				FieldWeight: {Column: intPtr(1), Fallback: "last"},
			},
		},
	}
	applyTemplateConfigDefaults(config)
	return config
}

// =============================================================================
// TEMPLATE SELECTION
// =============================================================================

// FindTemplate finds the template configuration that matches the given file.
//
// PARAMETERS:
//   - filePath: The path (or name) of the primary document.
//   - templates: A map of template configurations.
//
// RETURNS:
//   - The matching template configuration, or nil if no match is found.
//
// MATCHING LOGIC:
//   Templates are tried in template code order and the first whose file
//   matching patterns match the file name (case-insensitively) wins.
func FindTemplate(filePath string, templates map[string]*TemplateConfig) *TemplateConfig {
	fileName := strings.ToLower(filepath.Base(filePath))

	codes := make([]string, 0, len(templates))
	for code := range templates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		tmpl := templates[code]
		for _, pattern := range tmpl.FileMatchingPatterns {
			matched, err := filepath.Match(strings.ToLower(pattern), fileName)
			if err != nil {
				// Invalid pattern, skip it.
				continue
			}
			if matched {
				return tmpl
			}
		}
	}

	return nil
}

// SelectTemplate resolves the template for a run: an explicit code first,
// then file name matching, then the configured default, then the built-in
// layout. ok is false only when an explicit code is unknown.
func SelectTemplate(code, fileName, defaultCode string, templates map[string]*TemplateConfig) (tmpl *TemplateConfig, ok bool) {
	if code != "" {
		tmpl, ok = templates[code]
		if !ok && code == "default" {
			return DefaultTemplate(), true
		}
		return tmpl, ok
	}
	if tmpl = FindTemplate(fileName, templates); tmpl != nil {
		return tmpl, true
	}
	if tmpl, ok = templates[defaultCode]; ok {
		return tmpl, true
	}
	return DefaultTemplate(), true
}
