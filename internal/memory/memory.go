package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"worklog/internal/core"
	"worklog/internal/worklog"
)

// Store is an in-memory work-log store and task catalog. It is the default
// backend for local development and tests; nothing survives a restart.
type Store struct {
	mu          sync.Mutex
	entries     map[string]core.WorkLogEntry
	tasks       map[string]core.Task
	assignments map[string][]string // userID -> taskIDs
	nextID      int
}

var (
	_ worklog.WorkLogStore = (*Store)(nil)
	_ worklog.TaskCatalog  = (*Store)(nil)
)

func New() *Store {
	return &Store{
		entries:     map[string]core.WorkLogEntry{},
		tasks:       map[string]core.Task{},
		assignments: map[string][]string{},
	}
}

// NewSeeded returns a store preloaded with a small task catalog so the API is
// usable out of the box.
func NewSeeded() *Store {
	s := New()
	seed := []core.Task{
		{ID: "t-backend", Title: "Backend development", ProjectID: "p-platform", Status: "active"},
		{ID: "t-frontend", Title: "Frontend development", ProjectID: "p-platform", Status: "active"},
		{ID: "t-support", Title: "Customer support", ProjectID: "p-ops", Status: "active"},
	}
	for _, t := range seed {
		s.tasks[t.ID] = t
	}
	return s
}

// List returns entries for one owner, or all entries when ownerUserID is empty.
func (s *Store) List(_ context.Context, ownerUserID string) ([]core.WorkLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.WorkLogEntry
	for _, e := range s.entries {
		if ownerUserID == "" || e.OwnerUserID == ownerUserID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.SameDay(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Create(_ context.Context, e core.WorkLogEntry) (core.WorkLogEntry, error) {
	if err := e.Validate(); err != nil {
		return core.WorkLogEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	e.ID = fmt.Sprintf("mem:%d", s.nextID)
	e.CreatedAt = now
	e.UpdatedAt = now
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) Update(_ context.Context, id string, patch core.EntryPatch) (core.WorkLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return core.WorkLogEntry{}, fmt.Errorf("update entry %s: %w: entry not found", id, core.ErrOperationFailed)
	}

	if patch.TaskID != nil {
		e.TaskID = *patch.TaskID
	}
	if patch.ProjectID != nil {
		e.ProjectID = *patch.ProjectID
	}
	if patch.WorkDate != nil {
		e.WorkDate = *patch.WorkDate
	}
	if patch.HoursWorked != nil {
		e.HoursWorked = *patch.HoursWorked
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	if patch.RejectionReason != nil {
		e.RejectionReason = *patch.RejectionReason
	}
	e.UpdatedAt = time.Now().UTC()

	s.entries[id] = e
	return e, nil
}

// AssignedTasks returns the user's tasks; users with no explicit assignment
// see the whole catalog.
func (s *Store) AssignedTasks(_ context.Context, userID string) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, explicit := s.assignments[userID]
	var out []core.Task
	if explicit {
		for _, id := range ids {
			if t, ok := s.tasks[id]; ok {
				out = append(out, t)
			}
		}
	} else {
		for _, t := range s.tasks {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddTask adds or replaces a catalog task.
func (s *Store) AddTask(t core.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// Assign restricts a user to an explicit task list.
func (s *Store) Assign(userID string, taskIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[userID] = append(s.assignments[userID], taskIDs...)
}
