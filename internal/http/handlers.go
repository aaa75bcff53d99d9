package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"worklog/internal/core"
	"worklog/internal/worklog"
)

type errorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type entryResponse struct {
	ID              string  `json:"id"`
	OwnerUserID     string  `json:"owner_user_id"`
	TaskID          string  `json:"task_id"`
	ProjectID       string  `json:"project_id"`
	WorkDate        string  `json:"work_date"`
	HoursWorked     float64 `json:"hours_worked"`
	Notes           string  `json:"notes,omitempty"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

func toEntryResponse(e core.WorkLogEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		OwnerUserID:     e.OwnerUserID,
		TaskID:          e.TaskID,
		ProjectID:       e.ProjectID,
		WorkDate:        e.WorkDate.String(),
		HoursWorked:     e.HoursWorked,
		Notes:           e.Notes,
		Status:          string(e.Status),
		RejectionReason: e.RejectionReason,
	}
}

type taskResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id"`
	Status      string `json:"status,omitempty"`
}

type cellResponse struct {
	Date       string          `json:"date"`
	Selectable bool            `json:"selectable"`
	Hours      float64         `json:"hours"`
	Entries    []entryResponse `json:"entries,omitempty"`
}

type calendarResponse struct {
	Month      string           `json:"month"`
	Weeks      [][]cellResponse `json:"weeks"`
	MonthHours float64          `json:"month_hours"`
}

type batchResponse struct {
	SucceededIDs []string `json:"succeeded_ids"`
	FailedIDs    []string `json:"failed_ids"`
}

// writeError maps domain errors onto HTTP statuses: validation failures are
// 422 with their code, unknown entries 404, non-pending conflicts 409, and
// store failures 502 since the subsystem treats them as retryable.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: string(ve.Code), Message: ve.Message})
	case errors.Is(err, worklog.ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, worklog.ErrNotPending):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, core.ErrOperationFailed):
		slog.ErrorContext(r.Context(), "Store operation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "work log store unavailable"})
	default:
		slog.ErrorContext(r.Context(), "Unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	tasks, err := s.catalog.AssignedTasks(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			ProjectID:   t.ProjectID,
			Status:      t.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	today := core.DateOf(s.clock.Now())

	viewMonth := core.MonthOf(today)
	if raw := r.URL.Query().Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("invalid month %q, want YYYY-MM", raw)})
			return
		}
		viewMonth = core.Month{Year: t.Year(), Month: t.Month()}
	}

	cacheKey := userID + "|" + viewMonth.String()
	if cached, ok := s.calendarCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := s.store.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	grid := worklog.BuildMonthGrid(entries, viewMonth, today)

	resp := calendarResponse{
		Month:      viewMonth.String(),
		MonthHours: grid.MonthHours(),
	}
	for _, week := range grid.Weeks() {
		row := make([]cellResponse, 0, len(week))
		for _, cell := range week {
			c := cellResponse{
				Date:       cell.Date.String(),
				Selectable: cell.Selectable,
				Hours:      worklog.DailyHours(cell),
			}
			for _, e := range cell.Entries {
				c.Entries = append(c.Entries, toEntryResponse(e))
			}
			row = append(row, c)
		}
		resp.Weeks = append(resp.Weeks, row)
	}

	s.calendarCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

type entryRequest struct {
	OwnerUserID string  `json:"owner_user_id"`
	TaskID      string  `json:"task_id"`
	WorkDate    string  `json:"work_date"`
	HoursWorked float64 `json:"hours_worked"`
	Notes       string  `json:"notes"`
	ViewMonth   string  `json:"view_month"`
}

// draftFromRequest turns the request body into a validation draft plus the
// context the temporal rules run against. The viewed month defaults to the
// current month when the client does not send one.
func (s *Server) draftFromRequest(r *http.Request, req entryRequest, ownerUserID string) (worklog.Draft, worklog.ValidationContext, error) {
	workDate, err := core.ParseDate(req.WorkDate)
	if err != nil {
		return worklog.Draft{}, worklog.ValidationContext{}, fmt.Errorf("invalid work_date %q, want YYYY-MM-DD", req.WorkDate)
	}

	today := core.DateOf(s.clock.Now())
	viewMonth := core.MonthOf(today)
	if req.ViewMonth != "" {
		t, err := time.Parse("2006-01", req.ViewMonth)
		if err != nil {
			return worklog.Draft{}, worklog.ValidationContext{}, fmt.Errorf("invalid view_month %q, want YYYY-MM", req.ViewMonth)
		}
		viewMonth = core.Month{Year: t.Year(), Month: t.Month()}
	}

	tasks, err := s.catalog.AssignedTasks(r.Context(), ownerUserID)
	if err != nil {
		return worklog.Draft{}, worklog.ValidationContext{}, err
	}
	taskSet := make(map[string]core.Task, len(tasks))
	for _, t := range tasks {
		taskSet[t.ID] = t
	}

	draft := worklog.Draft{
		OwnerUserID: ownerUserID,
		TaskID:      req.TaskID,
		WorkDate:    workDate,
		HoursWorked: req.HoursWorked,
		Notes:       req.Notes,
	}
	vctx := worklog.ValidationContext{
		ViewMonth: viewMonth,
		Today:     today,
		Tasks:     taskSet,
	}
	return draft, vctx, nil
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.OwnerUserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "owner_user_id is required"})
		return
	}

	draft, vctx, err := s.draftFromRequest(r, req, req.OwnerUserID)
	if err != nil {
		if errors.Is(err, core.ErrOperationFailed) {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	validated, err := worklog.Validate(draft, vctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.Create(r.Context(), validated)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.calendarCache.Clear()
	writeJSON(w, http.StatusCreated, toEntryResponse(created))
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.findEntry(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	draft, vctx, err := s.draftFromRequest(r, req, existing.OwnerUserID)
	if err != nil {
		if errors.Is(err, core.ErrOperationFailed) {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}
	vctx.Existing = &existing

	validated, err := worklog.Validate(draft, vctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.Update(r.Context(), id, worklog.EditPatch(validated))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.calendarCache.Clear()
	writeJSON(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleApproveEntry(w http.ResponseWriter, r *http.Request) {
	updated, err := s.engine.ApproveOne(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.calendarCache.Clear()
	writeJSON(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleRejectEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	updated, err := s.engine.RejectOne(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.calendarCache.Clear()
	writeJSON(w, http.StatusOK, toEntryResponse(updated))
}

type batchRequest struct {
	Action string `json:"action"` // approve | reject
	Range  struct {
		Kind string `json:"kind"` // all | week | month | custom
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"range"`
	Reason string `json:"reason"`
}

func (s *Server) handleBatchApproval(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	rng := core.ApprovalRange{Kind: core.RangeKind(req.Range.Kind)}
	if rng.Kind == core.RangeCustom {
		var err error
		if rng.From, err = core.ParseDate(req.Range.From); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("invalid range from %q", req.Range.From)})
			return
		}
		if rng.To, err = core.ParseDate(req.Range.To); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("invalid range to %q", req.Range.To)})
			return
		}
	}

	entries, err := s.store.List(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var result worklog.BatchResult
	switch req.Action {
	case "approve":
		result, err = s.engine.ApproveBatch(r.Context(), entries, rng)
	case "reject":
		result, err = s.engine.RejectBatch(r.Context(), entries, rng, req.Reason)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("unknown action %q", req.Action)})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.calendarCache.Clear()
	writeJSON(w, http.StatusOK, batchResponse{
		SucceededIDs: append([]string{}, result.SucceededIDs...),
		FailedIDs:    append([]string{}, result.FailedIDs...),
	})
}

func (s *Server) findEntry(r *http.Request, id string) (core.WorkLogEntry, error) {
	entries, err := s.store.List(r.Context(), "")
	if err != nil {
		return core.WorkLogEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.WorkLogEntry{}, fmt.Errorf("entry %s: %w", id, worklog.ErrEntryNotFound)
}
