package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/queryloom/queryloom/internal/api"
	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/database"
	"github.com/queryloom/queryloom/internal/engine"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	executor := database.NewExecutor(cfg.PostgresDSN(), logger)
	registry := engine.NewRegistry(newEngineFactory(cfg, logger))

	srv, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Registry:   registry,
		Executor:   executor,
		TrustProxy: cfg.TrustProxy,
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)
	if err := srv.Run(ctx, addr, logger); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}
