package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"worklog/internal/backend"
	"worklog/internal/config"
	"worklog/internal/core"
	apphttp "worklog/internal/http"
	"worklog/internal/worklog"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := backend.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := components.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	clock := worklog.SystemClock{}
	engine := worklog.NewEngine(components.Store, components.Notifier, clock)
	engine.SetConcurrency(cfg.BatchConcurrency)

	refresher := worklog.NewRefresher(components.Store, nil, worklog.RefresherConfig{
		Interval: cfg.RefreshInterval,
	})
	refresher.Subscribe(func(entries []core.WorkLogEntry) {
		pending := 0
		for _, e := range entries {
			if e.Status == core.StatusPending {
				pending++
			}
		}
		slog.Debug("Entry snapshot refreshed", "entries", len(entries), "pending", pending)
	})
	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start refresher", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, components.Store, components.Catalog, engine, clock)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := refresher.Stop(shutdownCtx); err != nil {
			logger.Error("Refresher shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting worklog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"task_source", cfg.TaskSource)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
