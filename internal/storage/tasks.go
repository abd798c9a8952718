package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dops/internal/core"
)

const taskColumns = `t.id, t.title, t.description, t.client_id, c.name,
	t.category, t.managers, t.duration_value, t.duration_unit,
	t.hours_centi, t.rate_won, t.price_won, t.task_date, t.settle_status, t.created_at`

// TaskFilter narrows ListTasks. Zero values mean "any".
type TaskFilter struct {
	Year     int
	Month    int
	ClientID int64
	Status   core.SettleStatus
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	managers, err := marshalManagers(t.Managers)
	if err != nil {
		return core.Task{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, client_id, category, managers,
			duration_value, duration_unit, hours_centi, rate_won, price_won,
			task_date, settle_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.ClientID, string(t.Category), managers,
		t.Duration.Value, string(t.Duration.Unit), int64(t.Hours), t.Rate.Won, t.Price.Won,
		formatDate(t.TaskDate), string(t.Status), nowStamp())
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Task{}, fmt.Errorf("task insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Task created",
		"id", t.ID,
		"title", t.Title,
		"client_id", t.ClientID,
		"hours", t.Hours.Float(),
		"price_won", t.Price.Won)

	return t, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (core.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t JOIN clients c ON c.id = t.client_id WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return core.Task{}, notFoundOr(err, "get task")
	}
	return t, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, f TaskFilter) ([]core.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN clients c ON c.id = t.client_id`
	var (
		conds []string
		args  []any
	)
	if f.Year != 0 && f.Month != 0 {
		conds = append(conds, `substr(t.task_date, 1, 7) = ?`)
		args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
	}
	if f.ClientID != 0 {
		conds = append(conds, `t.client_id = ?`)
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		conds = append(conds, `t.settle_status = ?`)
		args = append(args, string(f.Status))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY t.task_date DESC, t.id DESC`

	return r.queryTasks(ctx, query, args...)
}

// ListTasksInRange returns tasks with task_date in [from, to], inclusive.
// The reporting job uses this for its daily and weekly windows.
func (r *SQLiteRepository) ListTasksInRange(ctx context.Context, from, to core.Date) ([]core.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN clients c ON c.id = t.client_id
		WHERE t.task_date >= ? AND t.task_date <= ? ORDER BY t.task_date, t.id`
	return r.queryTasks(ctx, query, formatDate(from), formatDate(to))
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...any) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, t core.Task) error {
	managers, err := marshalManagers(t.Managers)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, client_id = ?, category = ?, managers = ?,
			duration_value = ?, duration_unit = ?, hours_centi = ?, rate_won = ?, price_won = ?,
			task_date = ?, settle_status = ?
		 WHERE id = ?`,
		t.Title, t.Description, t.ClientID, string(t.Category), managers,
		t.Duration.Value, string(t.Duration.Unit), int64(t.Hours), t.Rate.Won, t.Price.Won,
		formatDate(t.TaskDate), string(t.Status), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Task deleted", "id", id)
	return nil
}

// BulkUpdateSettleStatus flips the settlement status of every listed task
// in one statement, so the batch lands or fails as a unit.
func (r *SQLiteRepository) BulkUpdateSettleStatus(ctx context.Context, ids []int64, status core.SettleStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(status))
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET settle_status = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update settle status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}

	slog.InfoContext(ctx, "Settlement status updated in bulk",
		"requested", len(ids),
		"affected", affected,
		"status", string(status))

	return affected, nil
}

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(row taskScanner) (core.Task, error) {
	var (
		t        core.Task
		managers string
		category string
		unit     string
		status   string
		hours    int64
		taskDate string
		created  string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.ClientID, &t.ClientName,
		&category, &managers, &t.Duration.Value, &unit,
		&hours, &t.Rate.Won, &t.Price.Won, &taskDate, &status, &created)
	if err != nil {
		return core.Task{}, err
	}

	t.Category = core.Category(category)
	t.Duration.Unit = core.DurationUnit(unit)
	t.Hours = core.Hours(hours)
	t.Status = core.SettleStatus(status)
	t.CreatedAt = parseStamp(created)

	if err := json.Unmarshal([]byte(managers), &t.Managers); err != nil {
		return core.Task{}, fmt.Errorf("decode managers for task %d: %w", t.ID, err)
	}
	if t.TaskDate, err = parseDate(taskDate); err != nil {
		return core.Task{}, err
	}
	return t, nil
}

func marshalManagers(managers []string) (string, error) {
	if managers == nil {
		managers = []string{}
	}
	b, err := json.Marshal(managers)
	if err != nil {
		return "", fmt.Errorf("encode managers: %w", err)
	}
	return string(b), nil
}
