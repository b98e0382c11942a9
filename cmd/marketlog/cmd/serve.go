package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/marketlog/internal/api"
	"github.com/hugo-lorenzo-mato/marketlog/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history read-only over HTTP",
	Long: `Start a read-only JSON API over the history for dashboards.

Endpoints:
  GET /health
  GET /api/v1/history
  GET /api/v1/versions
  GET /api/v1/versions/latest
  GET /api/v1/versions/{version}
  GET /api/v1/versions/{version}/markdown

The history file is watched; responses reflect new versions as soon as
they are written.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: serve.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(cmd, func(cfg *config.Config) {
		if serveAddr != "" {
			cfg.Serve.Addr = serveAddr
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(a.store,
		api.WithLogger(a.logger.Slog()),
		api.WithCORSOrigins(a.cfg.Serve.CORSOrigins),
	)
	return srv.ListenAndServe(ctx, a.cfg.Serve.Addr)
}
