package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sdportal/internal/api"
)

var (
	// ErrNotFound is returned when an update targets a task that was never recorded.
	ErrNotFound = errors.New("task not recorded")
	// ErrDuplicate is returned when a task id is recorded twice for one client.
	ErrDuplicate = errors.New("task already recorded")
)

// Entry is one submitted task.
type Entry struct {
	ID          int64
	ClientID    string
	TaskID      string
	TaskType    api.TaskType
	TaskArgs    string
	BaseModel   string
	Prompt      string
	VRAMLimit   *int
	NumImages   int
	Status      api.TaskStatus
	AbortReason string
	ImagesDir   string
	ImagesSaved bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NeedsPolling reports whether the watcher still has work for the entry.
func (e *Entry) NeedsPolling() bool {
	if !e.Status.Terminal() {
		return true
	}
	return e.Status == api.TaskStatusSuccess && !e.ImagesSaved && e.NumImages > 0
}

const entryColumns = `id, client_id, task_id, task_type, task_args, base_model, prompt, vram_limit,
    num_images, status, abort_reason, images_dir, images_saved, created_at, updated_at`

// Record inserts a newly submitted task.
func (s *Store) Record(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.ClientID == "" || entry.TaskID == "" {
		return nil, errors.New("record task: client id and task id required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	var vram any
	if entry.VRAMLimit != nil {
		vram = *entry.VRAMLimit
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO tasks (
            client_id, task_id, task_type, task_args, base_model, prompt, vram_limit,
            num_images, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ClientID,
		entry.TaskID,
		int(entry.TaskType),
		entry.TaskArgs,
		nullableString(entry.BaseModel),
		nullableString(entry.Prompt),
		vram,
		entry.NumImages,
		int(entry.Status),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicate, entry.ClientID, entry.TaskID)
		}
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.Get(ctx, entry.ClientID, entry.TaskID)
}

// Get returns the entry for a task, or nil when it was never recorded.
func (s *Store) Get(ctx context.Context, clientID, taskID string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM tasks WHERE client_id = ? AND task_id = ?`, clientID, taskID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return entry, nil
}

// FindByTaskID returns the most recent entry with taskID for any client.
func (s *Store) FindByTaskID(ctx context.Context, taskID string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM tasks WHERE task_id = ? ORDER BY id DESC LIMIT 1`, taskID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return entry, nil
}

// UpdateStatus stores the latest relay status for a task.
func (s *Store) UpdateStatus(ctx context.Context, clientID, taskID string, status api.TaskStatus, abortReason string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, abort_reason = ?, updated_at = ? WHERE client_id = ? AND task_id = ?`,
		int(status),
		nullableString(abortReason),
		time.Now().UTC().Format(time.RFC3339Nano),
		clientID,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireRow(res, clientID, taskID)
}

// MarkImagesSaved records where the result images were written.
func (s *Store) MarkImagesSaved(ctx context.Context, clientID, taskID, dir string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET images_saved = 1, images_dir = ?, updated_at = ? WHERE client_id = ? AND task_id = ?`,
		dir,
		time.Now().UTC().Format(time.RFC3339Nano),
		clientID,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("mark images saved: %w", err)
	}
	return requireRow(res, clientID, taskID)
}

// Pending returns entries the watcher still has to poll or download, oldest first.
func (s *Store) Pending(ctx context.Context) ([]*Entry, error) {
	return s.query(ctx,
		`SELECT `+entryColumns+` FROM tasks
         WHERE status NOT IN (?, ?) OR (status = ? AND images_saved = 0 AND num_images > 0)
         ORDER BY id`,
		int(api.TaskStatusAborted), int(api.TaskStatusSuccess), int(api.TaskStatusSuccess))
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM tasks ORDER BY id DESC`
	if limit > 0 {
		return s.query(ctx, query+` LIMIT ?`, limit)
	}
	return s.query(ctx, query)
}

// Stats counts entries by status.
func (s *Store) Stats(ctx context.Context) (map[api.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[api.TaskStatus]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[api.TaskStatus(status)] = count
	}
	return stats, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result, clientID, taskID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, clientID, taskID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
