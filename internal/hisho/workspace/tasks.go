package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Task is a to-do item.
type Task struct {
	ID          string
	Owner       string
	Title       string
	Notes       string
	Due         *time.Time
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// TaskFilter selects tasks by completion.
type TaskFilter string

const (
	TasksPending   TaskFilter = "pending"
	TasksCompleted TaskFilter = "completed"
	TasksAll       TaskFilter = "all"
)

// ParseTaskFilter maps user wording onto a filter. Unknown values mean
// pending.
func ParseTaskFilter(s string) TaskFilter {
	switch s {
	case "completed", "done", "finished":
		return TasksCompleted
	case "all", "everything":
		return TasksAll
	default:
		return TasksPending
	}
}

const taskColumns = `id, owner, title, notes, due_at, completed, completed_at, created_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t           Task
		due, doneAt sql.NullInt64
		completed   int
		created     int64
	)
	if err := row.Scan(&t.ID, &t.Owner, &t.Title, &t.Notes, &due, &completed, &doneAt, &created); err != nil {
		return Task{}, err
	}
	t.Due = ptrFromNull(due)
	t.Completed = completed == 1
	t.CompletedAt = ptrFromNull(doneAt)
	t.CreatedAt = fromUnix(created)
	return t, nil
}

func (w *Workspace) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func filterClause(f TaskFilter) string {
	switch f {
	case TasksCompleted:
		return " AND completed = 1"
	case TasksAll:
		return ""
	default:
		return " AND completed = 0"
	}
}

// ListTasks returns tasks with due dates first (soonest first), then by
// creation time.
func (w *Workspace) ListTasks(ctx context.Context, owner string, f TaskFilter, limit int) ([]Task, error) {
	return w.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE owner = ?"+filterClause(f)+
		" ORDER BY due_at IS NULL, due_at, created_at, id LIMIT ?", owner, limitOr(limit, 20))
}

// FindTasks matches text against title and notes.
func (w *Workspace) FindTasks(ctx context.Context, owner, text string, f TaskFilter, limit int) ([]Task, error) {
	p := like(text)
	return w.queryTasks(ctx, "SELECT "+taskColumns+` FROM tasks
		WHERE owner = ? AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(notes) LIKE ? ESCAPE '\')`+filterClause(f)+
		" ORDER BY created_at, id LIMIT ?", owner, p, p, limitOr(limit, 10))
}

// GetTask returns one task.
func (w *Workspace) GetTask(ctx context.Context, owner, id string) (Task, error) {
	t, err := scanTask(w.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner = ? AND id = ?", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("workspace: get task %s: %w", id, err)
	}
	return t, nil
}

// AddTask stores t.
func (w *Workspace) AddTask(ctx context.Context, t Task) (Task, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = w.now()
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner, title, notes, due_at, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Title, t.Notes, nullUnix(t.Due), boolInt(t.Completed), nullUnix(t.CompletedAt), unix(t.CreatedAt))
	if err != nil {
		return Task{}, fmt.Errorf("workspace: add task: %w", err)
	}
	return t, nil
}

// CompleteTask marks a task done. Completing a done task is a no-op.
func (w *Workspace) CompleteTask(ctx context.Context, owner, id string) (Task, error) {
	t, err := w.GetTask(ctx, owner, id)
	if err != nil {
		return Task{}, err
	}
	if t.Completed {
		return t, nil
	}
	now := w.now()
	if _, err := w.db.ExecContext(ctx,
		"UPDATE tasks SET completed = 1, completed_at = ? WHERE owner = ? AND id = ?",
		unix(now), owner, id); err != nil {
		return Task{}, fmt.Errorf("workspace: complete task %s: %w", id, err)
	}
	t.Completed, t.CompletedAt = true, &now
	return t, nil
}

// DeleteTask removes a task.
func (w *Workspace) DeleteTask(ctx context.Context, owner, id string) error {
	err := affected(w.db.ExecContext(ctx, "DELETE FROM tasks WHERE owner = ? AND id = ?", owner, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: delete task %s: %w", id, err)
	}
	return err
}
