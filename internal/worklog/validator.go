package worklog

import (
	"strings"

	"worklog/internal/core"
)

// Draft is the caller-supplied input for creating or editing an entry.
type Draft struct {
	OwnerUserID string
	TaskID      string
	WorkDate    core.Date
	HoursWorked float64
	Notes       string
}

// ValidationContext carries everything the temporal rules need. Today is
// injected rather than read from the wall clock so validation stays pure.
type ValidationContext struct {
	ViewMonth core.Month
	Today     core.Date
	// Existing is set when the draft edits a stored entry; nil on create.
	Existing *core.WorkLogEntry
	// Tasks is the caller's resolved task set, keyed by task ID. A draft
	// whose TaskID is absent here is unresolvable.
	Tasks map[string]core.Task
}

// Validate applies the creation/edit rules in order; the first failure wins.
// On success it returns the entry as it should be submitted to the store:
// for edits the identity fields are carried over from the existing entry, a
// rejected entry is reset to pending, and its rejection reason is cleared
// (resubmission re-enters the manager's queue).
//
// Immutability of approved entries and the reason-required rule are enforced
// here and in the approval engine only; call sites must not re-implement them.
func Validate(d Draft, vctx ValidationContext) (core.WorkLogEntry, error) {
	if vctx.Existing != nil && vctx.Existing.Status == core.StatusApproved {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeImmutableApproved,
			"entry %s is approved and cannot change", vctx.Existing.ID)
	}

	task, ok := vctx.Tasks[d.TaskID]
	if strings.TrimSpace(d.TaskID) == "" || !ok {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeMissingTask,
			"task %q is not assigned or does not exist", d.TaskID)
	}

	if d.WorkDate.IsWeekend() {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeWeekend,
			"%s is a %s", d.WorkDate, d.WorkDate.Weekday())
	}

	if d.WorkDate.After(vctx.Today) {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeFutureDate,
			"%s is after today (%s)", d.WorkDate, vctx.Today)
	}

	if !vctx.ViewMonth.Contains(d.WorkDate) {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeOutOfViewMonth,
			"%s is outside the viewed month %s", d.WorkDate, vctx.ViewMonth)
	}

	if d.HoursWorked <= 0 || d.HoursWorked > core.MaxDailyHours {
		return core.WorkLogEntry{}, core.NewValidationError(core.CodeInvalidHours,
			"hours must be in (0, %v], got %v", core.MaxDailyHours, d.HoursWorked)
	}

	entry := core.WorkLogEntry{
		OwnerUserID: d.OwnerUserID,
		TaskID:      task.ID,
		ProjectID:   task.ProjectID,
		WorkDate:    d.WorkDate,
		HoursWorked: d.HoursWorked,
		Notes:       d.Notes,
		Status:      core.StatusPending,
	}
	if vctx.Existing != nil {
		entry.ID = vctx.Existing.ID
		entry.OwnerUserID = vctx.Existing.OwnerUserID
		entry.CreatedAt = vctx.Existing.CreatedAt
	}
	return entry, nil
}

// EditPatch converts a validated edit into the store patch for an existing
// entry, including the pending reset for resubmitted rejections.
func EditPatch(validated core.WorkLogEntry) core.EntryPatch {
	status := core.StatusPending
	reason := ""
	return core.EntryPatch{
		TaskID:          &validated.TaskID,
		ProjectID:       &validated.ProjectID,
		WorkDate:        &validated.WorkDate,
		HoursWorked:     &validated.HoursWorked,
		Notes:           &validated.Notes,
		Status:          &status,
		RejectionReason: &reason,
	}
}
