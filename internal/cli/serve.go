package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/inkwell/internal/server"
)

func newServeCmd(flags *GlobalFlags) *cobra.Command {
	var (
		addr string
		rps  float64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes generation, service listings, feature settings and batch
jobs over HTTP, with a WebSocket stream of batch progress at
/v1/batch/{kind}/ws.

The first Ctrl+C drains in-flight requests; a second one exits immediately.`,
		Example: `  inkwell serve
  inkwell serve --addr 127.0.0.1:9000 --rate-limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := interruptible(cmd.Context())
			defer h.Stop()
			ctx := h.Context()

			app, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			opts := server.Options{
				Addr:            app.Config.Server.Addr,
				RateLimitRPS:    app.Config.Server.RateLimitRPS,
				RateLimitBurst:  app.Config.Server.RateLimitBurst,
				ShutdownTimeout: app.Config.Server.ShutdownTimeout,
			}
			if cmd.Flags().Changed("addr") {
				opts.Addr = addr
			}
			if cmd.Flags().Changed("rate-limit") {
				opts.RateLimitRPS = rps
			}

			// A nil *batch.Tracker must stay a nil interface.
			var tracker server.BatchTracker
			if app.Tracker != nil {
				tracker = app.Tracker
			}

			logger := GetLogger()
			logger.Info().
				Str("addr", opts.Addr).
				Bool("batch", tracker != nil).
				Strs("services", app.Registry.Slugs()).
				Msg("starting inkwell API")

			return server.New(opts, app.Orchestrator, tracker, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().Float64Var(&rps, "rate-limit", 0, "requests per second per client (default from server.rate_limit_rps)")
	return cmd
}
