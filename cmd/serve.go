package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analytics backend",
	Long: `Runs the HTTP backend the dashboard reads from. It proxies the merchant
profile and transaction history from the payment processor and serves the
daily, hourly, card-type and summary aggregates.

Needs SUMUP_API_KEY (environment, .env or config.json). Listens on $PORT or
listen_addr from config.json unless --addr is given.

Endpoints:
  GET /health
  GET /api/merchant
  GET /api/transactions?limit=100&start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
  GET /api/analytics/summary
  GET /api/analytics/daily?days=30
  GET /api/analytics/hourly?days=7
  GET /api/analytics/card-types?days=30
  GET /api/debug`,
	Example: `  SUMUP_API_KEY=sup_sk_... tally serve
  tally serve --addr 127.0.0.1:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		up, err := deps.Upstream()
		if err != nil {
			return err
		}

		if !deps.Config.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := server.New(up, server.Options{
			AllowedOrigins: deps.Config.AllowedOrigins,
			APIKeySet:      up.HasKey(),
			RedactedKey:    deps.Config.RedactedAPIKey(),
			UpstreamURL:    up.BaseURL(),
		})

		addr := deps.Config.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: :5000 or $PORT)")
}
