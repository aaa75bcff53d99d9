package backend

import (
	"context"
	"fmt"
	"log/slog"

	"worklog/internal/amqp"
	"worklog/internal/config"
	"worklog/internal/memory"
	"worklog/internal/storage"
	gsheet "worklog/internal/taskcat/google"
	"worklog/internal/worklog"
)

// Components bundles the wired collaborator ports for the selected backend.
type Components struct {
	Store    worklog.WorkLogStore
	Catalog  worklog.TaskCatalog
	Notifier worklog.NotificationDispatcher

	// Cleanup releases backend resources; always non-nil.
	Cleanup func() error
}

// Build assembles store, task catalog and notification dispatcher from the
// application config.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var cleanups []func() error
	components := &Components{}

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		cleanups = append(cleanups, repo.Close)
		components.Store = repo
		components.Catalog = repo
		slog.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	case "memory":
		store := memory.NewSeeded()
		components.Store = store
		components.Catalog = store
		slog.InfoContext(ctx, "Initialized memory backend")

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	if cfg.TaskSource == "sheets" {
		catalog, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets task catalog: %w", err)
		}
		components.Catalog = catalog
		slog.InfoContext(ctx, "Using Google Sheets task catalog",
			"spreadsheet", cfg.GoogleSpreadsheetID)
	}

	// Broker notifications are optional; without a URL rejections only reach
	// the log.
	components.Notifier = amqp.LogDispatcher{}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, using log-only notifications", "error", err)
		} else {
			cleanups = append(cleanups, client.Close)
			components.Notifier = amqp.NewDispatcher(client)
			slog.InfoContext(ctx, "Initialized AMQP notifications",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	components.Cleanup = func() error {
		var firstErr error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return components, nil
}
