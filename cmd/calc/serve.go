package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/calc/pkg/api"
	grpcapi "github.com/lemonberrylabs/calc/pkg/api/grpc"
	"github.com/lemonberrylabs/calc/pkg/config"
	"github.com/lemonberrylabs/calc/pkg/logging"
	"github.com/lemonberrylabs/calc/pkg/store"
	"github.com/lemonberrylabs/calc/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, gRPC service and web UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	s := store.New(cfg.HistoryLimit)
	server := api.New(s, api.Options{
		MaxExpressionLength: cfg.MaxExpressionLength,
		Strict:              cfg.Strict,
		Logger:              logger,
	})

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("web UI disabled due to template error", "error", r)
			}
		}()
		ui := web.New(s, web.Options{
			MaxExpressionLength: cfg.MaxExpressionLength,
			Strict:              cfg.Strict,
		})
		ui.Register(server.App())
	}()

	grpcServer := grpcapi.New(s, grpcapi.Options{
		MaxExpressionLength: cfg.MaxExpressionLength,
		Strict:              cfg.Strict,
		Logger:              logger,
	})
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(cfg.GRPCAddr); err != nil {
			logger.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	logger.Info("calc server listening",
		"addr", cfg.HTTPAddr,
		"history_limit", cfg.HistoryLimit,
		"strict", cfg.Strict,
		"version", version,
	)
	return server.Listen(cfg.HTTPAddr)
}
