package pipeline

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/classifier"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/extractor"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/locator"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/normalize"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// Document roles.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// CompileSchemas turns a template configuration into the extraction schemas
// of its primary (cost) and secondary (weight) documents.
//
// PARAMETERS:
//   - tmpl: The template configuration.
//   - limits: Row and column ceilings applied to both documents.
//
// RETURNS:
//   - The primary and secondary schemas.
//   - An error if a pattern or regular expression cannot be compiled.
func CompileSchemas(tmpl *config.TemplateConfig, limits config.LimitsConfig) (primary, secondary extractor.Schema, err error) {
	primary, err = compileDocument(RolePrimary, extractor.ModeCost, tmpl.Primary, tmpl, limits)
	if err != nil {
		return primary, secondary, err
	}
	secondary, err = compileDocument(RoleSecondary, extractor.ModeWeight, tmpl.Secondary, tmpl, limits)
	return primary, secondary, err
}

func compileDocument(role string, mode extractor.Mode, doc config.DocumentSettings, tmpl *config.TemplateConfig, limits config.LimitsConfig) (extractor.Schema, error) {
	schema := extractor.Schema{
		Role:       role,
		Mode:       mode,
		MinColumns: doc.MinColumns,
		MaxRows:    limits.MaxRows,
		MaxColumns: limits.MaxColumns,
	}

	nameStrategies, err := compileStrategies(doc.Fields[config.FieldName])
	if err != nil {
		return schema, fmt.Errorf("%s document, field %q: %w", role, config.FieldName, err)
	}
	schema.Classifier = classifier.New(classifier.Rules{
		DenyKeywords:    tmpl.Classification.DenyKeywords,
		RequireKeywords: tmpl.Classification.RequireKeywords,
		MinNameLength:   tmpl.Classification.MinNameLength,
	}, nameStrategies...)

	required := 1 // name
	targets := []struct {
		name string
		spec **locator.FieldSpec
	}{
		{config.FieldCode, &schema.Code},
		{config.FieldQuantity, &schema.Quantity},
		{config.FieldCost, &schema.Cost},
		{config.FieldWeight, &schema.Weight},
	}
	for _, target := range targets {
		settings, listed := doc.Fields[target.name]
		needed := modeRequires(mode, target.name)
		if !listed && !needed && !(target.name == config.FieldCode && role == RolePrimary) {
			continue
		}
		spec, err := compileField(target.name, settings, tmpl.Code)
		if err != nil {
			return schema, fmt.Errorf("%s document, field %q: %w", role, target.name, err)
		}
		*target.spec = spec
		if needed || spec.Required {
			required++
		}
	}

	// A numeric scan never reads the preferred column of another field,
	// whether or not that field validates in a given row.
	fields := []*locator.FieldSpec{
		{Strategies: nameStrategies},
		schema.Code,
		schema.Quantity,
		schema.Cost,
		schema.Weight,
	}
	for i, spec := range fields {
		if i < 2 || spec == nil {
			continue
		}
		exclude := slices.Clone(spec.ExcludeColumns)
		for j, other := range fields {
			if j == i {
				continue
			}
			for _, col := range preferredColumns(other) {
				if !slices.Contains(exclude, col) {
					exclude = append(exclude, col)
				}
			}
		}
		spec.ExcludeColumns = exclude
	}

	if schema.MinColumns == 0 {
		schema.MinColumns = required
	}
	return schema, nil
}

// preferredColumns returns the columns named by a field's column strategies.
func preferredColumns(spec *locator.FieldSpec) []int {
	if spec == nil {
		return nil
	}
	var cols []int
	for _, s := range spec.Strategies {
		if col, ok := s.(locator.ColumnStrategy); ok {
			cols = append(cols, col.Index)
		}
	}
	return cols
}

func modeRequires(mode extractor.Mode, field string) bool {
	switch mode {
	case extractor.ModeCost:
		return field == config.FieldQuantity || field == config.FieldCost
	case extractor.ModeWeight:
		return field == config.FieldWeight
	}
	return false
}

func compileField(name string, settings config.FieldSettings, code config.CodeSettings) (*locator.FieldSpec, error) {
	validator, err := compileValidator(name, settings, code)
	if err != nil {
		return nil, err
	}
	strategies, err := compileStrategies(settings)
	if err != nil {
		return nil, err
	}
	return &locator.FieldSpec{
		Name:           name,
		Validator:      validator,
		Strategies:     strategies,
		Required:       settings.Required,
		ExcludeColumns: settings.ExcludeColumns,
	}, nil
}

func compileValidator(name string, settings config.FieldSettings, code config.CodeSettings) (locator.Validator, error) {
	pattern := settings.Pattern
	if pattern == "" {
		pattern = "number"
		if name == config.FieldCode {
			pattern = "fixed_code"
		}
	}

	switch pattern {
	case "number":
		return locator.Numeric(), nil
	case "fixed_code":
		return locator.FixedCode(code.Length, code.Prefixes), nil
	case "regex":
		re, err := regexp.Compile(settings.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		return locator.Regexp(re), nil
	case "text":
		return locator.ValidatorFunc(func(cell types.Cell) (locator.Value, bool) {
			text := normalize.CleanText(cell)
			return locator.Value{Text: text}, text != ""
		}), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}
}

// compileStrategies builds the strategy chain of a field. An explicit chain
// without a scan step, or the column shorthand, gets an aggregate scan with
// the field's fallback policy appended unless the fallback is "none".
func compileStrategies(settings config.FieldSettings) ([]locator.Strategy, error) {
	var chain []locator.Strategy

	if len(settings.Strategies) > 0 {
		for _, s := range settings.Strategies {
			switch s.Type {
			case "column":
				chain = append(chain, locator.ColumnStrategy{Index: s.Column})
			case "pattern_scan":
				re, err := regexp.Compile(s.Pattern)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern_scan expression: %w", err)
				}
				chain = append(chain, locator.PatternScanStrategy{Pattern: re})
			case "aggregate_scan":
				policy, err := locator.ParsePolicy(s.Policy)
				if err != nil {
					return nil, err
				}
				chain = append(chain, locator.AggregateScanStrategy{Policy: policy})
			default:
				return nil, fmt.Errorf("unknown strategy type %q", s.Type)
			}
		}
	} else if settings.Column != nil {
		chain = append(chain, locator.ColumnStrategy{Index: *settings.Column})
	}

	if settings.Fallback == "none" {
		if len(chain) == 0 {
			return nil, fmt.Errorf("fallback none leaves the field without a strategy")
		}
		return chain, nil
	}
	if hasScan(chain) {
		return chain, nil
	}
	policy, err := locator.ParsePolicy(settings.Fallback)
	if err != nil {
		return nil, err
	}
	return append(chain, locator.AggregateScanStrategy{Policy: policy}), nil
}

func hasScan(chain []locator.Strategy) bool {
	spec := locator.FieldSpec{Strategies: chain}
	return spec.HasScan()
}
