package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"worklog/internal/core"
	"worklog/internal/worklog"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads the task catalog from a Google Sheet. The sheet holds one task
// per row with an Assignees column listing user IDs; see parseTasks for the
// expected header layout.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tasksSheet    string
}

var _ worklog.TaskCatalog = (*Client)(nil)

// NewFromEnv creates a Sheets-backed catalog using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_TASKS_SHEET_NAME (default "Tasks")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	tasksSheet := strings.TrimSpace(os.Getenv("GOOGLE_TASKS_SHEET_NAME"))
	if tasksSheet == "" {
		tasksSheet = "Tasks"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tasksSheet:    tasksSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AssignedTasks implements worklog.TaskCatalog by reading the task sheet and
// filtering rows on the Assignees column.
func (c *Client) AssignedTasks(ctx context.Context, userID string) ([]core.Task, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:F", c.tasksSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read task sheet: %w: %w", core.ErrOperationFailed, err)
	}

	tasks, err := parseTasks(resp.Values, userID)
	if err != nil {
		return nil, fmt.Errorf("parse task sheet: %w", err)
	}

	slog.DebugContext(ctx, "Fetched assigned tasks from sheet",
		"user", userID,
		"sheet", c.tasksSheet,
		"tasks", len(tasks))

	return tasks, nil
}
