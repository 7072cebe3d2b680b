// =============================================================================
// Trade Document Reconciler - Pipeline Module
// =============================================================================
//
// This module orchestrates one reconciliation run, from two parsed documents
// to the final summary table.
//
// RECONCILIATION PIPELINE:
//   1. Extract cost records from the primary document
//   2. Extract weight records from the secondary document
//   3. Join them by normalized name (primary order, primary row count)
//   4. Append the totals row
//
// Row-level problems (extraction gaps, unmatched secondary records) are
// collected in the Result. Document-level problems (missing, empty or
// oversized documents) abort the run.
//
// CONCURRENCY:
//   A Pipeline is immutable after construction. Run may be called from any
//   number of goroutines; every call owns its records and table.
//
// =============================================================================

package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/aggregator"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/extractor"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/reconciler"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one reconciliation run.
type Result struct {
	// RunID identifies the run in logs, caches and output file names.
	RunID string

	// Template is the code of the template the run used.
	Template string

	// Table is the summary table: one row per retained primary record plus
	// the totals row.
	Table *types.SummaryTable

	// Primary and Secondary contain extraction statistics.
	Primary   DocumentStats
	Secondary DocumentStats

	// Gaps lists every dropped ITEM row of both documents.
	Gaps []*docerrors.Error

	// Unmatched lists secondary records whose key matched no primary record.
	Unmatched []*docerrors.Error

	// Overwritten counts secondary records discarded by the conflict policy.
	Overwritten int

	// Duration is the time taken by the run.
	Duration time.Duration
}

// DocumentStats contains statistics about one extracted document.
type DocumentStats struct {
	// Name is the document's file name, when known.
	Name string `json:"name,omitempty"`

	// Rows is the number of input rows.
	Rows int `json:"rows"`

	// Items is the number of rows classified as line items.
	Items int `json:"items"`

	// Skipped is the number of header, total and noise rows.
	Skipped int `json:"skipped"`

	// Records is the number of retained records.
	Records int `json:"records"`

	// Dropped is the number of line items missing a required field.
	Dropped int `json:"dropped"`
}

// AllIssues returns gaps followed by unmatched notices.
func (r *Result) AllIssues() []*docerrors.Error {
	issues := make([]*docerrors.Error, 0, len(r.Gaps)+len(r.Unmatched))
	issues = append(issues, r.Gaps...)
	return append(issues, r.Unmatched...)
}

// Recorder receives run observations. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveRun(template string, duration time.Duration, err error)
	ObserveDocument(role string, stats DocumentStats)
	ObserveUnmatched(count int)
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs reconciliations for one template.
type Pipeline struct {
	template    *config.TemplateConfig
	primary     *extractor.Extractor
	secondary   *extractor.Extractor
	reconciler  *reconciler.Reconciler
	totalsLabel string
	logger      *slog.Logger
	recorder    Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = recorder
	}
}

// New creates a Pipeline for a template.
//
// PARAMETERS:
//   - tmpl: The template configuration.
//   - limits: Row and column ceilings.
//   - opts: Optional logger and recorder.
//
// RETURNS:
//   - A new Pipeline, or an error if the template cannot be compiled.
func New(tmpl *config.TemplateConfig, limits config.LimitsConfig, opts ...Option) (*Pipeline, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("pipeline: template is nil")
	}

	p := &Pipeline{
		template:    tmpl,
		totalsLabel: tmpl.Output.TotalsLabel,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"), slog.String("template", tmpl.TemplateCode))

	primarySchema, secondarySchema, err := CompileSchemas(tmpl, limits)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %q: %w", tmpl.TemplateCode, err)
	}
	if p.primary, err = extractor.New(primarySchema, p.logger); err != nil {
		return nil, fmt.Errorf("failed to build primary extractor: %w", err)
	}
	if p.secondary, err = extractor.New(secondarySchema, p.logger); err != nil {
		return nil, fmt.Errorf("failed to build secondary extractor: %w", err)
	}

	policy, err := reconciler.ParsePolicy(tmpl.Join.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	p.reconciler = reconciler.New(policy)

	return p, nil
}

// Template returns the pipeline's template configuration.
func (p *Pipeline) Template() *config.TemplateConfig {
	return p.template
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run reconciles a primary (cost) document with a secondary (weight)
// document.
//
// RETURNS:
//   - The Result, or a *docerrors.Error of kind InvalidInput or
//     MalformedDocument when either document cannot be used at all.
func (p *Pipeline) Run(primary, secondary *types.Document) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		RunID:    uuid.New().String(),
		Template: p.template.TemplateCode,
	}

	err := p.run(result, primary, secondary)
	result.Duration = time.Since(startTime)

	if p.recorder != nil {
		p.recorder.ObserveRun(result.Template, result.Duration, err)
	}
	if err != nil {
		p.logger.Warn("reconciliation failed",
			slog.String("run_id", result.RunID),
			slog.String("error_kind", docerrors.KindOf(err).String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	if p.recorder != nil {
		p.recorder.ObserveDocument(RolePrimary, result.Primary)
		p.recorder.ObserveDocument(RoleSecondary, result.Secondary)
		p.recorder.ObserveUnmatched(len(result.Unmatched))
	}
	p.logger.Info("reconciliation completed",
		slog.String("run_id", result.RunID),
		slog.Int("primary_records", result.Primary.Records),
		slog.Int("secondary_records", result.Secondary.Records),
		slog.Int("gaps", len(result.Gaps)),
		slog.Int("unmatched", len(result.Unmatched)),
		slog.Int("overwritten", result.Overwritten),
		slog.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) run(result *Result, primary, secondary *types.Document) error {
	// =========================================================================
	// STEP 1: Extract both documents
	// =========================================================================
	primaryExt, err := p.primary.Extract(primary)
	if err != nil {
		return err
	}
	secondaryExt, err := p.secondary.Extract(secondary)
	if err != nil {
		return err
	}

	result.Primary = statsOf(primary, primaryExt)
	result.Secondary = statsOf(secondary, secondaryExt)
	result.Gaps = append(append(result.Gaps, primaryExt.Gaps...), secondaryExt.Gaps...)

	// =========================================================================
	// STEP 2: Join by normalized name
	// =========================================================================
	joined := p.reconciler.Reconcile(primaryExt.Records, secondaryExt.Records)
	result.Overwritten = joined.Overwritten
	for _, rec := range joined.Unmatched {
		result.Unmatched = append(result.Unmatched, docerrors.Unjoinable(RoleSecondary, rec.SourceRow, rec.Name))
	}

	// =========================================================================
	// STEP 3: Totals
	// =========================================================================
	result.Table = aggregator.Aggregate(joined.Rows, p.totalsLabel)

	return nil
}

func statsOf(doc *types.Document, ext *extractor.Extraction) DocumentStats {
	return DocumentStats{
		Name:    doc.Name,
		Rows:    ext.Rows,
		Items:   ext.Items,
		Skipped: ext.Skipped,
		Records: len(ext.Records),
		Dropped: len(ext.Gaps),
	}
}

// =============================================================================
// CONVENIENCE
// =============================================================================

// Reconcile runs a one-off reconciliation with a template and the default
// limits.
func Reconcile(tmpl *config.TemplateConfig, primary, secondary *types.Document) (*Result, error) {
	p, err := New(tmpl, config.DefaultMainConfig().Limits)
	if err != nil {
		return nil, err
	}
	return p.Run(primary, secondary)
}
