// =============================================================================
// Trade Document Reconciler - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs one reconciliation
// from two files on disk and writes the summary table.
//
// COMMAND USAGE:
//   reconciler reconcile --primary FILE --secondary FILE [flags]
//
// FLAGS:
//   --primary    : Cost-bearing document (xlsx, csv, html)
//   --secondary  : Weight-bearing document (xlsx, csv, html)
//   --template   : Template code (default: matched by primary file name)
//   --output     : Output file path (default: output_dir + uuid_format)
//   --format     : xlsx, html, json or xml (default: from --output, else xlsx)
//   --gap-log    : Write dropped and unmatched rows to a gap log
//
// PROCESSING PIPELINE:
//   1. Select the template
//   2. Read both documents
//   3. Run the pipeline
//   4. Render the summary table
//   5. Write the gap log and print the run summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/render"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/tablesource"
	"github.com/ginjaninja78/tradedoc-reconciler/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// reconcileOptions holds the flags of the reconcile command.
type reconcileOptions struct {
	primary      string
	secondary    string
	templateCode string
	output       string
	format       string
	gapLog       bool
}

var reconcileOpts reconcileOptions

// =============================================================================
// RECONCILE COMMAND DEFINITION
// =============================================================================

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a cost document with a weight document",
	Long: `The reconcile command reads a primary (cost) document and a secondary
(weight) document, joins their line items by normalized product name and
writes a summary table with one row per primary line item plus a totals row.

Rows that lack a required field are dropped and reported. Secondary rows
that match no primary row are reported but never added to the table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := loadTemplates()
		if err != nil {
			return err
		}
		_, err = runReconcile(reconcileOpts, mainConfig, templates, logger.Logger, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()
	flags.StringVarP(&reconcileOpts.primary, "primary", "p", "", "Primary (cost) document")
	flags.StringVarP(&reconcileOpts.secondary, "secondary", "s", "", "Secondary (weight) document")
	flags.StringVarP(&reconcileOpts.templateCode, "template", "t", "", "Template code (default: matched by file name)")
	flags.StringVarP(&reconcileOpts.output, "output", "o", "", "Output file path")
	flags.StringVarP(&reconcileOpts.format, "format", "f", "", "Output format: xlsx, html, json or xml")
	flags.BoolVar(&reconcileOpts.gapLog, "gap-log", false, "Write a gap log to the output directory")

	_ = reconcileCmd.MarkFlagRequired("primary")
	_ = reconcileCmd.MarkFlagRequired("secondary")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runReconcile runs one reconciliation and prints its summary to out.
//
// RETURNS:
//   - The run summary.
//   - An error if the template is unknown, a document cannot be used or the
//     output cannot be written.
func runReconcile(opts reconcileOptions, cfg *config.MainConfig, templates map[string]*config.TemplateConfig, log *slog.Logger, out io.Writer) (*utils.RunSummary, error) {
	// =========================================================================
	// STEP 1: SELECT TEMPLATE AND OUTPUT FORMAT
	// =========================================================================
	tmpl, ok := config.SelectTemplate(opts.templateCode, opts.primary, cfg.DefaultTemplate, templates)
	if !ok {
		return nil, fmt.Errorf("unknown template %q", opts.templateCode)
	}

	formatName := opts.format
	if formatName == "" && opts.output != "" {
		formatName = strings.TrimPrefix(filepath.Ext(opts.output), ".")
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: READ DOCUMENTS
	// =========================================================================
	primaryDoc, err := tablesource.Open(opts.primary,
		tablesource.OptionsFrom(pipeline.RolePrimary, filepath.Base(opts.primary), tmpl.Primary))
	if err != nil {
		return nil, fmt.Errorf("failed to read primary document: %w", err)
	}
	secondaryDoc, err := tablesource.Open(opts.secondary,
		tablesource.OptionsFrom(pipeline.RoleSecondary, filepath.Base(opts.secondary), tmpl.Secondary))
	if err != nil {
		return nil, fmt.Errorf("failed to read secondary document: %w", err)
	}

	// =========================================================================
	// STEP 3: RUN PIPELINE
	// =========================================================================
	p, err := pipeline.New(tmpl, cfg.Limits, pipeline.WithLogger(log))
	if err != nil {
		return nil, err
	}
	result, err := p.Run(primaryDoc, secondaryDoc)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4: RENDER
	// =========================================================================
	renderOpts := render.OptionsFrom(tmpl)
	outputPath := opts.output
	if outputPath == "" {
		outputPath = filepath.Join(cfg.OutputDir, utils.GenerateOutputFileName(cfg.UUIDFormat, map[string]string{
			"uuid":     result.RunID,
			"template": result.Template,
			"ext":      format.Extension(),
		}))
	}
	if err := writeOutput(outputPath, format, result, renderOpts); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: GAP LOG AND SUMMARY
	// =========================================================================
	summary := &utils.RunSummary{
		RunID:         result.RunID,
		Template:      result.Template,
		PrimaryFile:   opts.primary,
		SecondaryFile: opts.secondary,
		OutputFile:    outputPath,
		Rows:          len(result.Table.Rows),
		Gaps:          len(result.Gaps),
		Unmatched:     len(result.Unmatched),
		Totals:        totalsOf(render.NewView(result.Table, renderOpts)),
		Duration:      result.Duration,
	}

	if opts.gapLog {
		summary.GapLogFile, err = utils.WriteGapLog(gapLogEntries(result, opts), cfg.OutputDir, result.RunID)
		if err != nil {
			return nil, err
		}
	}

	fmt.Fprint(out, utils.FormatRunSummary(*summary))
	return summary, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeOutput(path string, format render.Format, result *pipeline.Result, opts render.Options) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := render.Write(format, file, result.Table, opts); err != nil {
		file.Close()
		return fmt.Errorf("failed to render %s: %w", format, err)
	}
	return file.Close()
}

func gapLogEntries(result *pipeline.Result, opts reconcileOptions) []utils.GapLogEntry {
	issues := result.AllIssues()
	entries := make([]utils.GapLogEntry, 0, len(issues))
	for _, issue := range issues {
		fileName := opts.primary
		if issue.Document == pipeline.RoleSecondary {
			fileName = opts.secondary
		}
		entries = append(entries, utils.GapLogEntry{
			Kind:      issue.Kind.String(),
			Document:  issue.Document,
			FileName:  filepath.Base(fileName),
			RowNumber: issue.Row + 1,
			FieldName: issue.Field,
			Message:   issue.Message,
		})
	}
	return entries
}

func totalsOf(view *render.View) map[string]string {
	totals := make(map[string]string, 3)
	if v := view.Totals.Quantity; v != nil {
		totals["quantity"] = *v
	}
	if v := view.Totals.Cost; v != nil {
		totals["cost"] = *v
	}
	if v := view.Totals.Weight; v != nil {
		totals["weight"] = *v
	}
	return totals
}
