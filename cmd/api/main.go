package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/filedrop/internal/config"
	"github.com/abduss/filedrop/internal/file"
	"github.com/abduss/filedrop/internal/logger"
	"github.com/abduss/filedrop/internal/metrics"
	"github.com/abduss/filedrop/internal/server"
	"github.com/abduss/filedrop/internal/tracing"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "filedrop",
		Short:        "FileDrop upload, listing and retrieval API.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSweepCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSweepCommand() *cobra.Command {
	var opts file.SweepOptions
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove staged leftovers and blobs without a metadata record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return runSweep(cmd.Context(), opts)
		},
	}
	cmd.Flags().DurationVar(&opts.OlderThan, "older-than", time.Hour, fmt.Sprintf("only remove blobs last modified before this age (minimum %s)", file.MinSweepAge))
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be removed without deleting")
	return cmd
}

func setup(ctx context.Context) (config.Config, *zap.Logger, *app, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	a, err := buildApp(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Error("wire dependencies", zap.String("backends", describe(cfg)), zap.Error(err))
		_ = zapLogger.Sync()
		return config.Config{}, nil, nil, err
	}
	return cfg, zapLogger, a, nil
}

func runServe(ctx context.Context) error {
	cfg, zapLogger, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()
	defer a.close(context.Background(), zapLogger)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			zapLogger.Warn("shutdown tracing", zap.Error(err))
		}
	}()

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		Logger:       zapLogger,
		FileService:  a.fileService(cfg, zapLogger),
		HealthChecks: a.checks,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      otelhttp.NewHandler(router, "filedrop"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("FileDrop API listening",
			zap.String("addr", cfg.Server.Address()), zap.String("backends", describe(cfg)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	zapLogger.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown", zap.Error(err))
	}
	return nil
}

func runSweep(ctx context.Context, opts file.SweepOptions) error {
	_, zapLogger, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()
	defer a.close(context.Background(), zapLogger)

	result, err := a.sweeper(zapLogger).Run(ctx, opts)
	if err != nil {
		return err
	}

	zapLogger.Info("sweep finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Duration("older_than", opts.OlderThan),
		zap.Int("staged", result.Staged),
		zap.Int("orphaned", result.Orphaned),
		zap.Int("removed", result.Removed),
		zap.Int("failed", result.Failed),
	)
	if result.Failed > 0 {
		return fmt.Errorf("sweep: %d blobs could not be removed", result.Failed)
	}
	return nil
}
