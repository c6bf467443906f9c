package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpserver "github.com/Clark-Hu/bitebuzz/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	warmCtx, cancel := context.WithTimeout(ctx, a.Config.RatingsTimeout()+time.Second)
	if err := a.Engine.FetchLeaderboard(warmCtx); err != nil {
		logger.Warn("initial leaderboard fetch failed, serving demo data", zap.Error(err))
	}
	cancel()

	server := httpserver.New(a.Config, a.Engine, a.Catalog, a.Chat, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if a.Config.MenuFile != "" {
		g.Go(func() error {
			err := a.Catalog.Watch(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	logger.Info("bitebuzz started",
		zap.String("port", a.Config.Port),
		zap.String("ratings_backend", a.Config.RatingsBackend),
		zap.String("chat_provider", a.Chat.ProviderName()))
	return g.Wait()
}
