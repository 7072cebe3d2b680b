// =============================================================================
// Trade Document Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reconciler)
//   ├── reconcileCmd (reconciler reconcile)
//   ├── serveCmd     (reconciler serve)
//   ├── validateCmd  (reconciler validate)
//   └── versionCmd   (reconciler version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads a .env file from the working directory, if present
//   2. Loads the main configuration (--config) with RECONCILER_* overrides
//   3. Sets up structured logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// mainConfig and logger are set up by the root command's PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	logger     *logging.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Trade Document Reconciler - merge cost and weight documents into one summary",
	Long: `Trade Document Reconciler reads a primary cost-bearing document (invoice,
proforma) and a secondary weight-bearing document (packing list, waybill),
joins their line items by product name and produces a summary table with a
totals row.

Key Features:
  - XLSX, CSV and HTML input
  - Per-layout YAML templates (columns, fallbacks, keyword filters)
  - XLSX, HTML, JSON and XML output
  - HTTP API with per-session result cache

Example Usage:
  reconciler reconcile --primary invoice.xlsx --secondary waybill.xlsx
  reconciler serve --config ./config.yaml
  reconciler validate`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initApp()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initApp loads the environment, the main configuration and the logger.
func initApp() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	mainConfig = cfg

	l, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(l.Logger)

	logger.Debug("configuration loaded",
		slog.String("config", cfgFile),
		slog.String("templates_dir", cfg.TemplatesDir),
		slog.String("output_dir", cfg.OutputDir))
	return nil
}

// loadTemplates loads every template file and adds the built-in layout
// under the code "default" unless a file already uses it.
func loadTemplates() (map[string]*config.TemplateConfig, error) {
	templates, err := config.LoadTemplateConfigs(mainConfig.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if _, ok := templates["default"]; !ok {
		templates["default"] = config.DefaultTemplate()
	}
	return templates, nil
}
