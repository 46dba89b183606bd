package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/datemate/taskpoll/internal/store"
	"github.com/datemate/taskpoll/internal/task"
)

const taskColumns = `id, type, status, payload, result, error, created_at, started_at, finished_at`

// TaskStore implements task.Store on the ai_tasks table
type TaskStore struct {
	db store.DBTX
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore on top of db, which may be a *sql.DB or
// a *sql.Tx
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task. created_at defaults to the database clock when
// the record does not carry one.
func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalidRecord)
	}

	status := t.Status
	if status == "" {
		status = task.StatusPending
	}
	payload := t.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_tasks (id, type, status, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
	`,
		t.ID,
		string(t.Type),
		string(status),
		[]byte(payload),
		nullTime(t.CreatedAt),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert task",
			"task_id", t.ID,
			"task_type", t.Type,
			"error", err)
		return MapError(err)
	}
	return nil
}

// Get loads one task by id
func (s *TaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM ai_tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		return nil, MapError(err)
	}
	return t, nil
}

// MarkRunning moves a task to running
func (s *TaskStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, "mark task running", `
		UPDATE ai_tasks SET status = 'running', started_at = $2
		WHERE id = $1
	`, id, at.UTC())
}

// MarkPending moves a task back to pending
func (s *TaskStore) MarkPending(ctx context.Context, id string) error {
	return s.exec(ctx, "reset task to pending", `
		UPDATE ai_tasks SET status = 'pending', started_at = NULL
		WHERE id = $1
	`, id)
}

// Complete stores the result and moves the task to completed
func (s *TaskStore) Complete(ctx context.Context, id string, result json.RawMessage, at time.Time) error {
	var raw any
	if len(result) > 0 {
		raw = []byte(result)
	}
	return s.exec(ctx, "complete task", `
		UPDATE ai_tasks SET status = 'completed', result = $2, error = '', finished_at = $3
		WHERE id = $1
	`, id, raw, at.UTC())
}

// Fail stores the error message and moves the task to failed
func (s *TaskStore) Fail(ctx context.Context, id string, errMsg string, at time.Time) error {
	return s.exec(ctx, "fail task", `
		UPDATE ai_tasks SET status = 'failed', result = NULL, error = $2, finished_at = $3
		WHERE id = $1
	`, id, errMsg, at.UTC())
}

// Delete removes a task
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, "delete task", `DELETE FROM ai_tasks WHERE id = $1`, id)
}

// ListPending returns pending tasks, oldest first
func (s *TaskStore) ListPending(ctx context.Context) ([]*task.Task, error) {
	return s.listByStatus(ctx, task.StatusPending)
}

// ListRunning returns running tasks, oldest first
func (s *TaskStore) ListRunning(ctx context.Context) ([]*task.Task, error) {
	return s.listByStatus(ctx, task.StatusRunning)
}

func (s *TaskStore) listByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM ai_tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`, string(status))
	if err != nil {
		logger.FromContext(ctx).Error("failed to query tasks",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query %s tasks: %w", status, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// DeleteFinishedBefore removes completed and failed tasks that finished
// before cutoff
func (s *TaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM ai_tasks
		WHERE status IN ('completed', 'failed') AND finished_at < $1
	`, cutoff.UTC())
	if err != nil {
		logger.FromContext(ctx).Error("failed to delete expired tasks",
			"cutoff", cutoff,
			"error", err)
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (s *TaskStore) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to "+op,
			"task_id", args[0],
			"error", err)
		return fmt.Errorf("failed to %s: %w", op, MapError(err))
	}
	return checkRowsAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                 task.Task
		typ, status       string
		payload, result   []byte
		created           time.Time
		started, finished sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &typ, &status, &payload, &result, &t.Error,
		&created, &started, &finished,
	); err != nil {
		return nil, err
	}

	t.Type = task.Type(typ)
	t.Status = task.Status(status)
	t.Payload = payload
	if len(result) > 0 {
		t.Result = result
	}
	t.CreatedAt = &created
	t.StartedAt = timePtr(started)
	t.FinishedAt = timePtr(finished)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
