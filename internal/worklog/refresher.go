package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"worklog/internal/core"
)

// RefresherConfig holds configuration for the periodic store refresh.
type RefresherConfig struct {
	// Interval is how often the store is re-fetched (default: 30s).
	Interval time.Duration

	// OwnerUserID scopes the fetch; empty fetches all owners.
	OwnerUserID string
}

// DefaultRefresherConfig returns sensible defaults.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{Interval: 30 * time.Second}
}

// Refresher periodically re-fetches the entry list and pushes it to
// subscribers. It provides eventual consistency only: a snapshot may be stale
// with respect to in-flight batch updates until the next cycle. Subscribers
// replace the original's ambient window-level broadcast with an explicit,
// injected observer list.
type Refresher struct {
	store     WorkLogStore
	scheduler Scheduler
	config    RefresherConfig

	mu          sync.Mutex
	subscribers []func([]core.WorkLogEntry)
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewRefresher creates a refresher. A nil scheduler uses real timers.
func NewRefresher(store WorkLogStore, scheduler Scheduler, config RefresherConfig) *Refresher {
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultRefresherConfig().Interval
	}
	return &Refresher{store: store, scheduler: scheduler, config: config}
}

// Subscribe registers a callback for every refreshed snapshot. Callbacks run
// on the refresh goroutine and receive their own copy of the slice.
func (r *Refresher) Subscribe(fn func([]core.WorkLogEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Start begins the refresh loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Refresher started",
		"interval", r.config.Interval,
		"owner", r.config.OwnerUserID)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.doneCh:
		slog.InfoContext(ctx, "Refresher stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning reports whether the loop is active.
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := r.scheduler.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Fetch immediately on startup.
	r.refreshOnce(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	entries, err := r.store.List(ctx, r.config.OwnerUserID)
	if err != nil {
		slog.ErrorContext(ctx, "Refresh fetch failed", "error", err)
		return
	}

	r.mu.Lock()
	subs := append(([]func([]core.WorkLogEntry))(nil), r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subs {
		snapshot := append([]core.WorkLogEntry(nil), entries...)
		fn(snapshot)
	}

	slog.DebugContext(ctx, "Refresh cycle completed",
		"entries", len(entries),
		"subscribers", len(subs))
}
