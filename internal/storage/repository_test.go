package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"worklog/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "worklog.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testEntry(owner string, d core.Date) core.WorkLogEntry {
	return core.WorkLogEntry{
		OwnerUserID: owner,
		TaskID:      "t1",
		ProjectID:   "p1",
		WorkDate:    d,
		HoursWorked: 8,
		Notes:       "api work",
		Status:      core.StatusPending,
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testEntry("u1", core.NewDate(2024, time.June, 11)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create did not stamp timestamps")
	}

	entries, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}

	got := entries[0]
	if got.ID != created.ID || got.OwnerUserID != "u1" || got.TaskID != "t1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.WorkDate.SameDay(core.NewDate(2024, time.June, 11)) {
		t.Errorf("work date = %s", got.WorkDate)
	}
	if got.HoursWorked != 8 || got.Status != core.StatusPending {
		t.Errorf("hours/status = %v/%s", got.HoursWorked, got.Status)
	}
}

func TestListFiltersByOwner(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	repo.Create(ctx, testEntry("u1", core.NewDate(2024, time.June, 11)))
	repo.Create(ctx, testEntry("u2", core.NewDate(2024, time.June, 12)))

	mine, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine) != 1 || mine[0].OwnerUserID != "u1" {
		t.Errorf("owner filter returned %+v", mine)
	}

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List all returned %d entries, want 2", len(all))
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testEntry("u1", core.NewDate(2024, time.June, 11)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := core.StatusRejected
	reason := "wrong task"
	updated, err := repo.Update(ctx, created.ID, core.EntryPatch{
		Status:          &status,
		RejectionReason: &reason,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != core.StatusRejected || updated.RejectionReason != reason {
		t.Errorf("updated = %s/%q", updated.Status, updated.RejectionReason)
	}
	// Unpatched fields survive.
	if updated.HoursWorked != 8 || updated.TaskID != "t1" {
		t.Errorf("unpatched fields changed: %+v", updated)
	}

	entries, _ := repo.List(ctx, "u1")
	if entries[0].Status != core.StatusRejected {
		t.Errorf("persisted status = %s", entries[0].Status)
	}
}

func TestUpdateUnknownEntryFails(t *testing.T) {
	repo := testRepo(t)

	hours := 4.0
	_, err := repo.Update(context.Background(), "nope", core.EntryPatch{HoursWorked: &hours})
	if !errors.Is(err, core.ErrOperationFailed) {
		t.Errorf("got %v, want ErrOperationFailed", err)
	}
}

func TestAssignedTasks(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	tasks := []core.Task{
		{ID: "t1", Title: "API work", ProjectID: "p1", Status: "active"},
		{ID: "t2", Title: "Frontend", ProjectID: "p2", Status: "active"},
	}
	for _, task := range tasks {
		if err := repo.UpsertTask(ctx, task); err != nil {
			t.Fatalf("UpsertTask: %v", err)
		}
	}
	if err := repo.AssignTask(ctx, "t1", "u1"); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	// Re-assign is a no-op, not an error.
	if err := repo.AssignTask(ctx, "t1", "u1"); err != nil {
		t.Fatalf("repeat AssignTask: %v", err)
	}

	assigned, err := repo.AssignedTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("AssignedTasks: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != "t1" {
		t.Errorf("assigned = %+v, want just t1", assigned)
	}

	none, err := repo.AssignedTasks(ctx, "u9")
	if err != nil {
		t.Fatalf("AssignedTasks: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unassigned user got %+v", none)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "worklog.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	repo.Close()
}
