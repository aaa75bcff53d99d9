package worklog

import (
	"context"
	"time"

	"worklog/internal/core"
)

// Ports for outbound collaborators.
type (
	// WorkLogStore is the remote persistence collaborator. An empty
	// ownerUserID lists entries across all owners (the manager view).
	// Implementations wrap every failure in core.ErrOperationFailed.
	WorkLogStore interface {
		List(ctx context.Context, ownerUserID string) ([]core.WorkLogEntry, error)
		Create(ctx context.Context, e core.WorkLogEntry) (core.WorkLogEntry, error)
		// Update applies a partial patch; it serves both content edits and
		// status transitions.
		Update(ctx context.Context, id string, patch core.EntryPatch) (core.WorkLogEntry, error)
	}

	// TaskCatalog supplies the read-only task list used to resolve a draft's
	// task and derive its project.
	TaskCatalog interface {
		AssignedTasks(ctx context.Context, userID string) ([]core.Task, error)
	}

	// NotificationDispatcher delivers fire-and-forget user notifications.
	// Implementations log failures; they are never part of a batch result.
	NotificationDispatcher interface {
		Notify(ctx context.Context, userID, message string)
	}

	// Clock abstracts "now" so temporal rules are testable.
	Clock interface {
		Now() time.Time
	}

	// Ticker is a stoppable tick source.
	Ticker interface {
		C() <-chan time.Time
		Stop()
	}

	// Scheduler creates tickers; the refresher takes one so tests can drive
	// time without real timers.
	Scheduler interface {
		NewTicker(d time.Duration) Ticker
	}
)

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// SystemScheduler creates real time.Tickers.
type SystemScheduler struct{}

func (SystemScheduler) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}
