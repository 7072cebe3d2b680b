// =============================================================================
// Trade Document Reconciler - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the main
// configuration and every template without reading any document.
//
// COMMAND USAGE:
//   reconciler validate
//
// CHECKS:
//   1. The main configuration loads and passes validation (done by the root
//      command before this command runs)
//   2. Every template file parses and passes validation
//   3. Every template compiles into extraction schemas
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := loadTemplates()
		if err != nil {
			return err
		}
		return validateTemplates(mainConfig, templates, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateTemplates compiles every template and reports each one to out.
//
// RETURNS:
//   - An error naming the number of invalid templates, or nil.
func validateTemplates(cfg *config.MainConfig, templates map[string]*config.TemplateConfig, out io.Writer) error {
	codes := make([]string, 0, len(templates))
	for code := range templates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	failed := 0
	for _, code := range codes {
		tmpl := templates[code]
		if _, err := pipeline.New(tmpl, cfg.Limits); err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s: %v\n", code, err)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s (%s)\n", code, tmpl.TemplateName)
	}

	if _, ok := templates[cfg.DefaultTemplate]; cfg.DefaultTemplate != "" && !ok {
		failed++
		fmt.Fprintf(out, "  ✗ default_template %q is not configured\n", cfg.DefaultTemplate)
	}

	if failed > 0 {
		return fmt.Errorf("%d template(s) failed validation", failed)
	}
	fmt.Fprintf(out, "Configuration is valid (%d template(s))\n", len(templates))
	return nil
}
