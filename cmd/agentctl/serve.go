package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	httpserver "github.com/KamdynS/go-swarm/server/http"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat assistant and chess stream over HTTP",
		Example: `  # Start with config.yaml from . or ./configs
  agentctl serve

  # Use the code-based router on another port
  AGENTCTL_ROUTER_TYPE=code agentctl serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.WithoutCancel(ctx)); err != nil {
					log.Warn().Err(err).Msg("shutdown incomplete")
				}
			}()

			opts := []httpserver.Option{httpserver.WithChess(a.newGame)}
			if a.metrics != nil {
				opts = append(opts, httpserver.WithMetrics(a.metrics.Handler()))
			}
			if a.db != nil {
				opts = append(opts, httpserver.WithHealthCheck(a.db.Ping))
			}
			return httpserver.NewServer(a.chat, cfg.Server, opts...).ListenAndServe(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on; overrides server.port")
	return cmd
}
