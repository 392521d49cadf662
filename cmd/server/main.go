// Package main is the entry point for the RemoveBG-Pro HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/config"
	"github.com/Bibleyou/RemoveBG-Pro/internal/export"
	"github.com/Bibleyou/RemoveBG-Pro/internal/handler"
	"github.com/Bibleyou/RemoveBG-Pro/internal/ingest"
	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
	"github.com/Bibleyou/RemoveBG-Pro/internal/server"
	"github.com/Bibleyou/RemoveBG-Pro/internal/storage"
	"github.com/Bibleyou/RemoveBG-Pro/internal/workflow"
)

func main() {
	// run() keeps deferred cleanup working; os.Exit would skip it.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("REMOVEBG_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// JSON logs in production, human-readable ones when debugging.
	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr; nothing to do about it.
	defer func() { _ = logger.Sync() }()

	processor, err := remote.New(cfg.Remote, logger)
	if err != nil {
		return fmt.Errorf("creating remote processor: %w", err)
	}

	// The call ledger is optional: an empty path runs without it.
	var callRepo storage.CallRepository
	if cfg.Storage.DatabasePath != "" {
		db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		callRepo = storage.NewCallRepository(db)
	}

	orchestrator := workflow.NewOrchestrator(processor, workflow.Options{
		Timeout:  cfg.Remote.Timeout,
		Messages: workflow.MessagesFor(cfg.UI.Locale),
		Ledger:   callRepo,
	}, logger)

	sessions := workflow.NewSessions(cfg.Session.TTL, logger)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.Session.SweepInterval)

	sessionHandler := handler.NewSessionHandler(
		sessions,
		ingest.New(cfg.Upload.MaxBytes),
		orchestrator,
		export.New(cfg.Export.Prefix),
		cfg.Upload.MaxBytes,
		logger,
	)

	srv := server.New(cfg, server.Handlers{
		Health:   handler.NewHealthHandler(processor),
		Sessions: sessionHandler,
		Admin:    handler.NewAdminHandler(callRepo, sessions, logger),
	}, logger)

	logger.Info("remote processor ready",
		zap.String("adapter", processor.Name()),
		zap.Bool("configured", processor.Ready() == nil),
		zap.Bool("ledger", callRepo != nil),
		zap.String("locale", cfg.UI.Locale),
	)

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// In-flight requests and background jobs share one grace period.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := sessionHandler.Wait(ctx); err != nil {
		logger.Warn("background jobs still running at shutdown", zap.Error(err))
	}
	return nil
}
