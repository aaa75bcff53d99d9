package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusPending  EntryStatus = "pending"
	StatusApproved EntryStatus = "approved"
	StatusRejected EntryStatus = "rejected"
)

// MaxDailyHours bounds a single entry; hours must be in (0, MaxDailyHours].
const MaxDailyHours = 24.0

type (
	// EntryStatus is the review state of a work-log entry. Approved is terminal.
	EntryStatus string

	// WorkLogEntry is one owner's record of hours spent on a task on a
	// specific calendar date.
	WorkLogEntry struct {
		ID              string
		OwnerUserID     string
		TaskID          string
		ProjectID       string
		WorkDate        Date
		HoursWorked     float64
		Notes           string
		Status          EntryStatus
		RejectionReason string // non-empty iff Status == StatusRejected
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// Task comes from an external catalog and is read-only here.
	Task struct {
		ID          string
		Title       string
		Description string
		ProjectID   string
		Status      string
	}

	// EntryPatch is a partial update applied by the store; nil fields are
	// left untouched.
	EntryPatch struct {
		TaskID          *string
		ProjectID       *string
		WorkDate        *Date
		HoursWorked     *float64
		Notes           *string
		Status          *EntryStatus
		RejectionReason *string
	}
)

// IsValid reports whether s is one of the three lifecycle states.
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ErrorCode identifies a pre-submission validation failure.
type ErrorCode string

const (
	CodeWeekend           ErrorCode = "WEEKEND"
	CodeFutureDate        ErrorCode = "FUTURE_DATE"
	CodeOutOfViewMonth    ErrorCode = "OUT_OF_VIEW_MONTH"
	CodeInvalidHours      ErrorCode = "INVALID_HOURS"
	CodeImmutableApproved ErrorCode = "IMMUTABLE_APPROVED"
	CodeMissingTask       ErrorCode = "MISSING_TASK"
	CodeMissingReason     ErrorCode = "MISSING_REASON"
	CodeInvalidRange      ErrorCode = "INVALID_RANGE"
)

// ValidationError is a local, pre-submission failure. It is always surfaced
// before any store call is made.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds a coded validation error.
func NewValidationError(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidationCode reports whether err is a ValidationError carrying code.
func IsValidationCode(err error, code ErrorCode) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}

// ErrOperationFailed marks any non-success response from the work-log store.
// The subsystem does not distinguish network from server-side failures; all
// are retryable.
var ErrOperationFailed = errors.New("operation failed")

// Validate checks the entry's own field invariants. Temporal rules (weekend,
// future date, view month) live in the validator because they depend on an
// injected "today".
func (e WorkLogEntry) Validate() error {
	if strings.TrimSpace(e.OwnerUserID) == "" {
		return errors.New("empty owner user id")
	}
	if strings.TrimSpace(e.TaskID) == "" {
		return NewValidationError(CodeMissingTask, "entry has no task")
	}
	if e.WorkDate.IsZero() {
		return errors.New("work date cannot be zero")
	}
	if e.HoursWorked <= 0 || e.HoursWorked > MaxDailyHours {
		return NewValidationError(CodeInvalidHours, "hours must be in (0, %v], got %v", MaxDailyHours, e.HoursWorked)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("invalid status %q", e.Status)
	}
	if e.Status == StatusRejected && strings.TrimSpace(e.RejectionReason) == "" {
		return NewValidationError(CodeMissingReason, "rejected entry requires a reason")
	}
	if e.Status != StatusRejected && e.RejectionReason != "" {
		return fmt.Errorf("rejection reason set on %s entry", e.Status)
	}
	return nil
}
