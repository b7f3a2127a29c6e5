package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ppo-client/internal/core/config"
	"github.com/mohammed-shakir/ppo-client/internal/core/executor"
	"github.com/mohammed-shakir/ppo-client/internal/core/httpclient"
	"github.com/mohammed-shakir/ppo-client/internal/core/observability"
	"github.com/mohammed-shakir/ppo-client/internal/core/server"
	h3mapper "github.com/mohammed-shakir/ppo-client/internal/mapper/h3"
)

func newServeCmd() *cobra.Command {
	var addr, endpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /download over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.Addr = addr
			}
			if endpoint != "" {
				cfg.Endpoint = endpoint
			}

			log := newAppLogger(cfg, "server", cmd.OutOrStdout())
			observability.ExposeBuildInfo(Version)
			log.Info("starting ppo server",
				"addr", cfg.Addr,
				"version", Version,
				"endpoint", cfg.Endpoint)

			exec, err := executor.New(log, httpclient.NewOutbound(cfg.HTTPTimeout), cfg.Endpoint)
			if err != nil {
				log.Error("failed to initialize executor", "err", err)
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx, cfg, log, server.Handler(cfg, log, exec, h3mapper.New())); err != nil {
				log.Error("server exited with error", "err", err)
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $ADDR or :8090)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Download endpoint (default $PPO_ENDPOINT or the public portal)")
	return cmd
}
