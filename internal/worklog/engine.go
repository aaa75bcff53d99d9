package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"worklog/internal/core"
)

// ErrNotPending is returned by single-entry transitions on entries that are
// neither pending nor approved (batch paths simply skip them).
var ErrNotPending = errors.New("entry is not pending")

// ErrEntryNotFound is returned when a single-entry transition targets an
// unknown ID.
var ErrEntryNotFound = errors.New("entry not found")

const defaultConcurrency = 8

// Engine applies approve/reject transitions, in batches or one at a time.
// Batch updates are dispatched concurrently and independently: one entry's
// store failure never aborts the rest, and there is no cross-entry
// transaction, so callers must re-fetch for authoritative post-batch state.
type Engine struct {
	store    WorkLogStore
	notifier NotificationDispatcher
	clock    Clock
	limit    int
}

// BatchResult aggregates per-entry outcomes of a batch transition. Both
// slices are sorted; processing order is unspecified.
type BatchResult struct {
	SucceededIDs []string
	FailedIDs    []string
}

// NewEngine wires the engine's collaborators. notifier and clock may be nil;
// a nil notifier drops notifications and a nil clock reads the wall clock.
func NewEngine(store WorkLogStore, notifier NotificationDispatcher, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: store, notifier: notifier, clock: clock, limit: defaultConcurrency}
}

// SetConcurrency bounds the number of in-flight store updates per batch.
func (e *Engine) SetConcurrency(n int) {
	if n > 0 {
		e.limit = n
	}
}

// selectPending picks the entries a batch acts on: pending status and, for a
// bounded interval, work date inside it. Non-pending entries are excluded
// rather than rejected, which is what makes batch calls idempotent.
func selectPending(entries []core.WorkLogEntry, iv core.Interval) []core.WorkLogEntry {
	var out []core.WorkLogEntry
	for _, entry := range entries {
		if entry.Status != core.StatusPending {
			continue
		}
		if !iv.Contains(entry.WorkDate) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ApproveBatch transitions every pending entry inside rng to approved.
func (e *Engine) ApproveBatch(ctx context.Context, entries []core.WorkLogEntry, rng core.ApprovalRange) (BatchResult, error) {
	iv, err := ResolveRange(rng, core.DateOf(e.clock.Now()))
	if err != nil {
		return BatchResult{}, err
	}

	status := core.StatusApproved
	reason := ""
	return e.runBatch(ctx, selectPending(entries, iv), core.EntryPatch{
		Status:          &status,
		RejectionReason: &reason,
	}, nil), nil
}

// RejectBatch transitions every pending entry inside rng to rejected with the
// given reason and notifies each affected owner. An empty reason fails the
// whole call before any store write.
func (e *Engine) RejectBatch(ctx context.Context, entries []core.WorkLogEntry, rng core.ApprovalRange, reason string) (BatchResult, error) {
	if strings.TrimSpace(reason) == "" {
		return BatchResult{}, core.NewValidationError(core.CodeMissingReason,
			"a rejection reason is required")
	}

	iv, err := ResolveRange(rng, core.DateOf(e.clock.Now()))
	if err != nil {
		return BatchResult{}, err
	}

	status := core.StatusRejected
	return e.runBatch(ctx, selectPending(entries, iv), core.EntryPatch{
		Status:          &status,
		RejectionReason: &reason,
	}, func(ctx context.Context, entry core.WorkLogEntry) {
		e.notifyRejection(ctx, entry, reason)
	}), nil
}

// runBatch applies patch to each selected entry concurrently, collecting
// per-entry outcomes. onSuccess (if set) runs after each persisted update.
func (e *Engine) runBatch(ctx context.Context, selected []core.WorkLogEntry, patch core.EntryPatch, onSuccess func(context.Context, core.WorkLogEntry)) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for _, entry := range selected {
		g.Go(func() error {
			updated, err := e.store.Update(gctx, entry.ID, patch)
			if err != nil {
				slog.WarnContext(gctx, "Batch update failed",
					"entry_id", entry.ID,
					"owner", entry.OwnerUserID,
					"error", err)
				mu.Lock()
				result.FailedIDs = append(result.FailedIDs, entry.ID)
				mu.Unlock()
				return nil // per-entry failures never abort the batch
			}

			mu.Lock()
			result.SucceededIDs = append(result.SucceededIDs, entry.ID)
			mu.Unlock()

			if onSuccess != nil {
				onSuccess(gctx, updated)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines only ever return nil

	sort.Strings(result.SucceededIDs)
	sort.Strings(result.FailedIDs)

	slog.InfoContext(ctx, "Batch transition finished",
		"selected", len(selected),
		"succeeded", len(result.SucceededIDs),
		"failed", len(result.FailedIDs))

	return result
}

// ApproveOne approves a single pending entry by ID.
func (e *Engine) ApproveOne(ctx context.Context, id string) (core.WorkLogEntry, error) {
	entry, err := e.find(ctx, id)
	if err != nil {
		return core.WorkLogEntry{}, err
	}
	if err := requirePending(entry); err != nil {
		return core.WorkLogEntry{}, err
	}

	status := core.StatusApproved
	reason := ""
	updated, err := e.store.Update(ctx, id, core.EntryPatch{Status: &status, RejectionReason: &reason})
	if err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("approve entry %s: %w", id, err)
	}
	return updated, nil
}

// RejectOne rejects a single pending entry by ID with the given reason and
// notifies the owner.
func (e *Engine) RejectOne(ctx context.Context, id, reason string) (core.WorkLogEntry, error) {
	if strings.TrimSpace(reason) == "" {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeMissingReason,
			"a rejection reason is required")
	}

	entry, err := e.find(ctx, id)
	if err != nil {
		return core.WorkLogEntry{}, err
	}
	if err := requirePending(entry); err != nil {
		return core.WorkLogEntry{}, err
	}

	status := core.StatusRejected
	updated, err := e.store.Update(ctx, id, core.EntryPatch{Status: &status, RejectionReason: &reason})
	if err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("reject entry %s: %w", id, err)
	}
	e.notifyRejection(ctx, updated, reason)
	return updated, nil
}

// requirePending is the single-entry precondition shared with the validator's
// immutability rule: approved entries never change, and only pending entries
// may transition.
func requirePending(entry core.WorkLogEntry) error {
	switch entry.Status {
	case core.StatusPending:
		return nil
	case core.StatusApproved:
		return core.NewValidationError(core.CodeImmutableApproved,
			"entry %s is approved and cannot change", entry.ID)
	default:
		return fmt.Errorf("entry %s (%s): %w", entry.ID, entry.Status, ErrNotPending)
	}
}

func (e *Engine) find(ctx context.Context, id string) (core.WorkLogEntry, error) {
	entries, err := e.store.List(ctx, "")
	if err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("list entries: %w", err)
	}
	for _, entry := range entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return core.WorkLogEntry{}, fmt.Errorf("entry %s: %w", id, ErrEntryNotFound)
}

func (e *Engine) notifyRejection(ctx context.Context, entry core.WorkLogEntry, reason string) {
	if e.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Your work log for %s was rejected: %s", entry.WorkDate, reason)
	e.notifier.Notify(ctx, entry.OwnerUserID, msg)
}
