package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"worklog/internal/core"
	"worklog/internal/worklog"

	_ "modernc.org/sqlite"
)

var (
	_ worklog.WorkLogStore = (*SQLiteRepository)(nil)
	_ worklog.TaskCatalog  = (*SQLiteRepository)(nil)
)

// SQLiteRepository persists work log entries and the task catalog in a local
// SQLite database. It backs both the entry store and the catalog port.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// newEntryID creates a unique entry ID from the timestamp and a random suffix.
func newEntryID(t time.Time) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 5)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		suffix[i] = chars[n.Int64()]
	}
	return fmt.Sprintf("wl-%s-%s", t.Format("20060102-150405"), string(suffix))
}

func storeFailed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrOperationFailed, err)
}

const entryColumns = `id, owner_user_id, task_id, project_id, work_date, hours_worked, notes, status, rejection_reason, created_at, updated_at`

// List implements worklog.WorkLogStore. An empty ownerUserID lists all owners.
func (r *SQLiteRepository) List(ctx context.Context, ownerUserID string) ([]core.WorkLogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM work_log_entries`
	args := []any{}
	if ownerUserID != "" {
		query += ` WHERE owner_user_id = ?`
		args = append(args, ownerUserID)
	}
	query += ` ORDER BY work_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFailed("list entries", err)
	}
	defer rows.Close()

	var entries []core.WorkLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeFailed("scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailed("iterate entries", err)
	}
	return entries, nil
}

// Create implements worklog.WorkLogStore. It assigns the ID and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, e core.WorkLogEntry) (core.WorkLogEntry, error) {
	now := time.Now().UTC()
	e.ID = newEntryID(now)
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_log_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerUserID, e.TaskID, e.ProjectID,
		e.WorkDate.String(), e.HoursWorked, e.Notes,
		string(e.Status), e.RejectionReason,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return core.WorkLogEntry{}, storeFailed("insert entry", err)
	}

	slog.InfoContext(ctx, "Work log entry saved",
		"id", e.ID,
		"owner", e.OwnerUserID,
		"task", e.TaskID,
		"work_date", e.WorkDate.String(),
		"hours", e.HoursWorked)

	return e, nil
}

// Update implements worklog.WorkLogStore. Only fields set in the patch change.
func (r *SQLiteRepository) Update(ctx context.Context, id string, patch core.EntryPatch) (core.WorkLogEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WorkLogEntry{}, storeFailed("begin update", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM work_log_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkLogEntry{}, fmt.Errorf("update entry %s: %w: entry not found", id, core.ErrOperationFailed)
	}
	if err != nil {
		return core.WorkLogEntry{}, storeFailed("read entry for update", err)
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

	_, err = tx.ExecContext(ctx,
		`UPDATE work_log_entries
		 SET task_id = ?, project_id = ?, work_date = ?, hours_worked = ?,
		     notes = ?, status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ?`,
		e.TaskID, e.ProjectID, e.WorkDate.String(), e.HoursWorked,
		e.Notes, string(e.Status), e.RejectionReason,
		e.UpdatedAt.Format(time.RFC3339), id,
	)
	if err != nil {
		return core.WorkLogEntry{}, storeFailed("update entry", err)
	}

	if err := tx.Commit(); err != nil {
		return core.WorkLogEntry{}, storeFailed("commit update", err)
	}

	return e, nil
}

// AssignedTasks implements worklog.TaskCatalog.
func (r *SQLiteRepository) AssignedTasks(ctx context.Context, userID string) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.description, t.project_id, t.status
		 FROM tasks t
		 JOIN task_assignments a ON a.task_id = t.id
		 WHERE a.user_id = ?
		 ORDER BY t.id ASC`, userID)
	if err != nil {
		return nil, storeFailed("list assigned tasks", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		var t core.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.ProjectID, &t.Status); err != nil {
			return nil, storeFailed("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailed("iterate tasks", err)
	}
	return tasks, nil
}

// UpsertTask inserts or replaces a catalog task. Used by seeding and admin tooling.
func (r *SQLiteRepository) UpsertTask(ctx context.Context, t core.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, project_id, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   project_id = excluded.project_id,
		   status = excluded.status`,
		t.ID, t.Title, t.Description, t.ProjectID, t.Status,
	)
	if err != nil {
		return storeFailed("upsert task", err)
	}
	return nil
}

// AssignTask links a catalog task to a user.
func (r *SQLiteRepository) AssignTask(ctx context.Context, taskID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_assignments (task_id, user_id) VALUES (?, ?)
		 ON CONFLICT(task_id, user_id) DO NOTHING`,
		taskID, userID,
	)
	if err != nil {
		return storeFailed("assign task", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.WorkLogEntry, error) {
	var (
		e                    core.WorkLogEntry
		workDate             string
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.OwnerUserID, &e.TaskID, &e.ProjectID,
		&workDate, &e.HoursWorked, &e.Notes, &status, &e.RejectionReason,
		&createdAt, &updatedAt)
	if err != nil {
		return core.WorkLogEntry{}, err
	}

	d, err := core.ParseDate(workDate)
	if err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("parse work date %q: %w", workDate, err)
	}
	e.WorkDate = d
	e.Status = core.EntryStatus(status)

	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return core.WorkLogEntry{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return e, nil
}
