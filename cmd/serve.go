package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/server"
)

// addr overrides server.addr from the configuration.
var addr string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation HTTP API",
	Long: `Start the HTTP API. Uploads are reconciled with the template selected by
the "template" form field or by the primary file name; finished runs can be
exported per session until they expire from the cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr != "" {
			mainConfig.Server.Addr = addr
		}

		templates, err := loadTemplates()
		if err != nil {
			return err
		}
		srv, err := server.New(mainConfig, templates, logger.Logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}
