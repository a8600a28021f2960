// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/orch-mind/vecmem/internal/config"
	"github.com/orch-mind/vecmem/internal/server"
	"github.com/orch-mind/vecmem/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the vector store over HTTP",
		Long:  "Open the configured vector store and expose it through the JSON API until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				a.v.Set("server.listen", listen)
			}
			return a.withStore(cmd, func(ctx context.Context, vs store.VectorStore, cfg *config.Config) error {
				return runServe(ctx, cmd, vs, cfg)
			})
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
		Version: version,
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, vs store.VectorStore, cfg *config.Config) error {
	srv, err := server.New(serverConfig(cfg), vs)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down", "cause", context.Cause(ctx))
		return nil
	})

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "vecmem serving %s on %s\n", vs.Status(ctx).Path, cfg.Server.Listen); err != nil {
		return err
	}
	return g.Wait()
}
