package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"worklog/internal/memory"
	"worklog/internal/worklog"
)

type testClock struct{ t time.Time }

func (c testClock) Now() time.Time { return c.t }

type notifierSpy struct {
	mu   sync.Mutex
	sent []string
}

func (n *notifierSpy) Notify(_ context.Context, userID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, userID+"|"+message)
}

// Friday 2024-06-14 is "today" in all handler tests.
func newTestServer() (*Server, *memory.Store, *notifierSpy) {
	store := memory.NewSeeded()
	clock := testClock{t: time.Date(2024, time.June, 14, 9, 0, 0, 0, time.UTC)}
	notifier := &notifierSpy{}
	engine := worklog.NewEngine(store, notifier, clock)
	return NewServer(":0", store, store, engine, clock), store, notifier
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createEntry(t *testing.T, s *Server, owner, workDate string, hours float64) entryResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/entries", entryRequest{
		OwnerUserID: owner,
		TaskID:      "t-backend",
		WorkDate:    workDate,
		HoursWorked: hours,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create entry: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[entryResponse](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer()
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestListTasks(t *testing.T) {
	s, _, _ := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/api/tasks?user=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	tasks := decode[[]taskResponse](t, rec)
	if len(tasks) != 3 {
		t.Errorf("got %d tasks, want the seeded 3", len(tasks))
	}
}

func TestCreateEntry(t *testing.T) {
	s, _, _ := newTestServer()

	created := createEntry(t, s, "u1", "2024-06-11", 8)
	if created.Status != "pending" {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.ProjectID != "p-platform" {
		t.Errorf("project = %s, want derived from task", created.ProjectID)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/entries?user=u1", nil)
	entries := decode[[]entryResponse](t, rec)
	if len(entries) != 1 || entries[0].ID != created.ID {
		t.Errorf("listed entries = %+v", entries)
	}
}

func TestCreateEntryValidationErrors(t *testing.T) {
	s, _, _ := newTestServer()

	tests := []struct {
		name     string
		req      entryRequest
		wantCode string
	}{
		{
			name:     "weekend",
			req:      entryRequest{OwnerUserID: "u1", TaskID: "t-backend", WorkDate: "2024-06-15", HoursWorked: 8},
			wantCode: "WEEKEND",
		},
		{
			name:     "future date",
			req:      entryRequest{OwnerUserID: "u1", TaskID: "t-backend", WorkDate: "2024-06-17", HoursWorked: 8},
			wantCode: "FUTURE_DATE",
		},
		{
			name:     "unknown task",
			req:      entryRequest{OwnerUserID: "u1", TaskID: "nope", WorkDate: "2024-06-11", HoursWorked: 8},
			wantCode: "MISSING_TASK",
		},
		{
			name:     "zero hours",
			req:      entryRequest{OwnerUserID: "u1", TaskID: "t-backend", WorkDate: "2024-06-11", HoursWorked: 0},
			wantCode: "INVALID_HOURS",
		},
		{
			name:     "out of view month",
			req:      entryRequest{OwnerUserID: "u1", TaskID: "t-backend", WorkDate: "2024-06-11", HoursWorked: 8, ViewMonth: "2024-05"},
			wantCode: "OUT_OF_VIEW_MONTH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/entries", tt.req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decode[errorResponse](t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestCalendar(t *testing.T) {
	s, _, _ := newTestServer()
	createEntry(t, s, "u1", "2024-06-11", 8)
	createEntry(t, s, "u1", "2024-06-03", 1.5)

	rec := doJSON(t, s, http.MethodGet, "/api/calendar?user=u1&month=2024-06", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	cal := decode[calendarResponse](t, rec)

	if cal.Month != "2024-06" {
		t.Errorf("month = %s", cal.Month)
	}
	if cal.MonthHours != 9.5 {
		t.Errorf("month_hours = %v, want 9.5", cal.MonthHours)
	}
	for i, week := range cal.Weeks {
		if len(week) != 7 {
			t.Errorf("week %d has %d cells", i, len(week))
		}
	}
	// June 2024 grid runs Mon 2024-05-27 to Sun 2024-06-30.
	if cal.Weeks[0][0].Date != "2024-05-27" {
		t.Errorf("grid starts %s", cal.Weeks[0][0].Date)
	}
}

func TestCalendarCacheInvalidation(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/api/calendar?user=u1&month=2024-06", nil)
	if before := decode[calendarResponse](t, rec); before.MonthHours != 0 {
		t.Fatalf("empty calendar has %v hours", before.MonthHours)
	}

	createEntry(t, s, "u1", "2024-06-11", 8)

	rec = doJSON(t, s, http.MethodGet, "/api/calendar?user=u1&month=2024-06", nil)
	if after := decode[calendarResponse](t, rec); after.MonthHours != 8 {
		t.Errorf("cached calendar served after write: %v hours, want 8", after.MonthHours)
	}
}

func TestBatchApproveAllAndIdempotence(t *testing.T) {
	s, _, _ := newTestServer()
	first := createEntry(t, s, "u1", "2024-06-11", 8)
	createEntry(t, s, "u2", "2024-06-12", 6)

	var req batchRequest
	req.Action = "approve"
	req.Range.Kind = "all"

	rec := doJSON(t, s, http.MethodPost, "/api/approvals", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[batchResponse](t, rec)
	if len(res.SucceededIDs) != 2 || len(res.FailedIDs) != 0 {
		t.Fatalf("first run = %+v", res)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/approvals", req)
	res = decode[batchResponse](t, rec)
	if len(res.SucceededIDs) != 0 {
		t.Errorf("second run approved %v, want none", res.SucceededIDs)
	}

	// The approved entry can no longer be edited.
	rec = doJSON(t, s, http.MethodPatch, "/api/entries/"+first.ID, entryRequest{
		TaskID: "t-backend", WorkDate: "2024-06-12", HoursWorked: 4,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("edit approved: status %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Code != "IMMUTABLE_APPROVED" {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestBatchRejectCustomRange(t *testing.T) {
	s, _, notifier := newTestServer()
	inRange := createEntry(t, s, "u1", "2024-06-11", 8)
	// May entry, outside the custom range; needs its own view month to be accepted.
	mayRec := doJSON(t, s, http.MethodPost, "/api/entries", entryRequest{
		OwnerUserID: "u1", TaskID: "t-backend", WorkDate: "2024-05-20", HoursWorked: 8, ViewMonth: "2024-05",
	})
	if mayRec.Code != http.StatusCreated {
		t.Fatalf("create entry: status %d, body %s", mayRec.Code, mayRec.Body.String())
	}

	var req batchRequest
	req.Action = "reject"
	req.Range.Kind = "custom"
	req.Range.From = "2024-06-01"
	req.Range.To = "2024-06-15"
	req.Reason = "Hours exceed estimate"

	rec := doJSON(t, s, http.MethodPost, "/api/approvals", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[batchResponse](t, rec)
	if len(res.SucceededIDs) != 1 || res.SucceededIDs[0] != inRange.ID {
		t.Fatalf("rejected = %v, want just %s", res.SucceededIDs, inRange.ID)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %v, want one", notifier.sent)
	}
}

func TestBatchRejectRequiresReason(t *testing.T) {
	s, _, _ := newTestServer()
	createEntry(t, s, "u1", "2024-06-11", 8)

	var req batchRequest
	req.Action = "reject"
	req.Range.Kind = "all"

	rec := doJSON(t, s, http.MethodPost, "/api/approvals", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Code != "MISSING_REASON" {
		t.Errorf("code = %s", resp.Code)
	}

	// Zero writes: the entry is still pending.
	list := decode[[]entryResponse](t, doJSON(t, s, http.MethodGet, "/api/entries", nil))
	if list[0].Status != "pending" {
		t.Errorf("entry status = %s after failed reject", list[0].Status)
	}
}

func TestSingleEntryEndpoints(t *testing.T) {
	s, _, notifier := newTestServer()
	created := createEntry(t, s, "u1", "2024-06-11", 8)

	rec := doJSON(t, s, http.MethodPost, "/api/entries/"+created.ID+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: status %d", rec.Code)
	}
	if resp := decode[entryResponse](t, rec); resp.Status != "approved" {
		t.Errorf("status = %s", resp.Status)
	}

	// Approving again conflicts with immutability.
	rec = doJSON(t, s, http.MethodPost, "/api/entries/"+created.ID+"/approve", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("re-approve: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/entries/missing/approve", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("approve unknown: status %d", rec.Code)
	}

	second := createEntry(t, s, "u2", "2024-06-12", 6)
	rec = doJSON(t, s, http.MethodPost, "/api/entries/"+second.ID+"/reject",
		map[string]string{"reason": "wrong task"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: status %d, body %s", rec.Code, rec.Body.String())
	}
	if resp := decode[entryResponse](t, rec); resp.Status != "rejected" || resp.RejectionReason != "wrong task" {
		t.Errorf("rejected entry = %+v", resp)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %v", notifier.sent)
	}
}

func TestEditRejectedEntryResubmits(t *testing.T) {
	s, _, _ := newTestServer()
	created := createEntry(t, s, "u1", "2024-06-11", 8)

	rec := doJSON(t, s, http.MethodPost, "/api/entries/"+created.ID+"/reject",
		map[string]string{"reason": "too many hours"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/entries/"+created.ID, entryRequest{
		TaskID: "t-backend", WorkDate: "2024-06-11", HoursWorked: 6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[entryResponse](t, rec)
	if resp.Status != "pending" {
		t.Errorf("resubmitted status = %s, want pending", resp.Status)
	}
	if resp.RejectionReason != "" {
		t.Errorf("rejection reason not cleared: %q", resp.RejectionReason)
	}
	if resp.HoursWorked != 6 {
		t.Errorf("hours = %v", resp.HoursWorked)
	}
}

func TestUnknownBatchAction(t *testing.T) {
	s, _, _ := newTestServer()
	var req batchRequest
	req.Action = "archive"
	req.Range.Kind = "all"

	rec := doJSON(t, s, http.MethodPost, "/api/approvals", req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestBatchInvalidCustomRange(t *testing.T) {
	s, _, _ := newTestServer()
	createEntry(t, s, "u1", "2024-06-11", 8)

	var req batchRequest
	req.Action = "approve"
	req.Range.Kind = "custom"
	req.Range.From = "2024-06-15"
	req.Range.To = "2024-06-01"

	rec := doJSON(t, s, http.MethodPost, "/api/approvals", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Code != "INVALID_RANGE" {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestEditUnknownEntry(t *testing.T) {
	s, _, _ := newTestServer()
	rec := doJSON(t, s, http.MethodPatch, "/api/entries/missing", entryRequest{
		TaskID: "t-backend", WorkDate: "2024-06-11", HoursWorked: 4,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	a, b := generateRequestID(), generateRequestID()
	if a == b {
		t.Errorf("duplicate request IDs %s", a)
	}
	if a == "" || a == fmt.Sprintf("req_%d", 0) {
		t.Errorf("suspicious request ID %q", a)
	}
}
