package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dops/internal/core"
)

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("begin template tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO recurring_expenses (kind, title, payer, day_of_month, active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		rt.Kind, rt.Title, rt.Payer, rt.DayOfMonth, nowStamp())
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("insert recurring template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("template insert id: %w", err)
	}

	if err := insertAmounts(ctx, tx, `INSERT INTO recurring_amounts (recurring_id, position, user_name, amount_won) VALUES (?, ?, ?, ?)`, id, rt.Amounts); err != nil {
		return core.RecurringTemplate{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("commit recurring template: %w", err)
	}
	rt.ID = id
	rt.Active = true

	slog.InfoContext(ctx, "Recurring template created", "id", rt.ID, "title", rt.Title, "day_of_month", rt.DayOfMonth)
	return rt, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, title, payer, day_of_month, active, last_run, created_at
		 FROM recurring_expenses WHERE id = ?`, id)
	rt, err := scanTemplate(row)
	if err != nil {
		return core.RecurringTemplate{}, notFoundOr(err, "get recurring template")
	}
	if rt.Amounts, err = r.templateAmounts(ctx, rt.ID); err != nil {
		return core.RecurringTemplate{}, err
	}
	return rt, nil
}

// ListTemplates returns recurring templates; activeOnly restricts to ones
// the worker should still materialize.
func (r *SQLiteRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]core.RecurringTemplate, error) {
	query := `SELECT id, kind, title, payer, day_of_month, active, last_run, created_at FROM recurring_expenses`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTemplate
	for rows.Next() {
		rt, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		templates = append(templates, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		if templates[i].Amounts, err = r.templateAmounts(ctx, templates[i].ID); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, rt core.RecurringTemplate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_expenses SET kind = ?, title = ?, payer = ?, day_of_month = ? WHERE id = ?`,
		rt.Kind, rt.Title, rt.Payer, rt.DayOfMonth, rt.ID)
	if err != nil {
		return fmt.Errorf("update recurring template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recurring_amounts WHERE recurring_id = ?`, rt.ID); err != nil {
		return fmt.Errorf("clear template amounts: %w", err)
	}
	if err := insertAmounts(ctx, tx, `INSERT INTO recurring_amounts (recurring_id, position, user_name, amount_won) VALUES (?, ?, ?, ?)`, rt.ID, rt.Amounts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template update: %w", err)
	}
	return nil
}

// SetTemplateActive toggles the soft-delete flag; deactivated templates
// stop materializing but keep their history.
func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Recurring template active flag changed", "id", id, "active", active)
	return nil
}

// MarkTemplateRun stamps the last materialization date.
func (r *SQLiteRepository) MarkTemplateRun(ctx context.Context, id int64, when time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_run = ? WHERE id = ?`, when.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("mark template run: %w", err)
	}
	return nil
}

// BirthdayRow couples a birthday setting with its generation bookkeeping.
type BirthdayRow struct {
	core.BirthdaySetting
	LastGeneratedYear int
}

// UpsertBirthday creates or replaces the setting for a participant. One
// row per participant.
func (r *SQLiteRepository) UpsertBirthday(ctx context.Context, b core.BirthdaySetting) (core.BirthdaySetting, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO birthday_settings (user_name, birth_month, birth_day, amount_won)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_name) DO UPDATE SET birth_month = excluded.birth_month,
			birth_day = excluded.birth_day, amount_won = excluded.amount_won`,
		b.User, b.Month, b.Day, b.Amount.Won)
	if err != nil {
		return core.BirthdaySetting{}, fmt.Errorf("upsert birthday setting: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		b.ID = id
	}
	if b.ID == 0 {
		err = r.db.QueryRowContext(ctx,
			`SELECT id FROM birthday_settings WHERE user_name = ?`, b.User).Scan(&b.ID)
		if err != nil {
			return core.BirthdaySetting{}, fmt.Errorf("resolve birthday id: %w", err)
		}
	}
	return b, nil
}

func (r *SQLiteRepository) ListBirthdays(ctx context.Context) ([]BirthdayRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_name, birth_month, birth_day, amount_won, last_generated_year
		 FROM birthday_settings ORDER BY birth_month, birth_day`)
	if err != nil {
		return nil, fmt.Errorf("list birthday settings: %w", err)
	}
	defer rows.Close()

	var settings []BirthdayRow
	for rows.Next() {
		var b BirthdayRow
		if err := rows.Scan(&b.ID, &b.User, &b.Month, &b.Day, &b.Amount.Won, &b.LastGeneratedYear); err != nil {
			return nil, fmt.Errorf("scan birthday setting: %w", err)
		}
		settings = append(settings, b)
	}
	return settings, rows.Err()
}

func (r *SQLiteRepository) DeleteBirthday(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM birthday_settings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete birthday setting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// MarkBirthdayGenerated records that the gift entry for the given year was
// materialized, making the worker idempotent per year.
func (r *SQLiteRepository) MarkBirthdayGenerated(ctx context.Context, id int64, year int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE birthday_settings SET last_generated_year = ? WHERE id = ?`, year, id)
	if err != nil {
		return fmt.Errorf("mark birthday generated: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) templateAmounts(ctx context.Context, id int64) ([]core.UserAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_name, amount_won FROM recurring_amounts WHERE recurring_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load template amounts: %w", err)
	}
	defer rows.Close()

	var amounts []core.UserAmount
	for rows.Next() {
		var ua core.UserAmount
		if err := rows.Scan(&ua.User, &ua.Amount.Won); err != nil {
			return nil, fmt.Errorf("scan template amount: %w", err)
		}
		amounts = append(amounts, ua)
	}
	return amounts, rows.Err()
}

func scanTemplate(row interface{ Scan(dest ...any) error }) (core.RecurringTemplate, error) {
	var (
		rt      core.RecurringTemplate
		active  int
		lastRun string
		created string
	)
	err := row.Scan(&rt.ID, &rt.Kind, &rt.Title, &rt.Payer, &rt.DayOfMonth, &active, &lastRun, &created)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	rt.Active = active != 0
	rt.CreatedAt = parseStamp(created)
	if lastRun != "" {
		if t, err := time.Parse(dateLayout, lastRun); err == nil {
			rt.LastRun = t
		}
	}
	return rt, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
