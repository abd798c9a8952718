package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"dops/internal/core"
)

// LedgerFilter narrows ListEntries. Zero values mean "any".
type LedgerFilter struct {
	Year  int
	Month int
	Kind  string
}

// CreateEntry inserts a ledger entry and its per-user amount rows in one
// transaction. The returned entry carries the assigned ID; new entries
// always start at version 1.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (entry_date, kind, title, payer, created_at) VALUES (?, ?, ?, ?, ?)`,
		formatDate(e.Date), e.Kind, e.Title, e.Payer, nowStamp())
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("ledger insert id: %w", err)
	}

	if err := insertAmounts(ctx, tx, `INSERT INTO expense_amounts (expense_id, position, user_name, amount_won) VALUES (?, ?, ?, ?)`, id, e.Amounts); err != nil {
		return core.LedgerEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("commit ledger entry: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Ledger entry created",
		"id", e.ID,
		"kind", e.Kind,
		"title", e.Title,
		"payer", e.Payer,
		"participants", len(e.Amounts))

	return e, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	var (
		e       core.LedgerEntry
		date    string
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, entry_date, kind, title, payer, created_at
		 FROM expenses WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&e.ID, &date, &e.Kind, &e.Title, &e.Payer, &created)
	if err != nil {
		return core.LedgerEntry{}, notFoundOr(err, "get ledger entry")
	}
	if e.Date, err = parseDate(date); err != nil {
		return core.LedgerEntry{}, err
	}
	e.CreatedAt = parseStamp(created)

	if e.Amounts, err = r.entryAmounts(ctx, e.ID); err != nil {
		return core.LedgerEntry{}, err
	}
	return e, nil
}

// GetEntryVersion returns the current version of an entry, including
// soft-deleted ones. The sync worker compares it against the queued
// message version to skip stale deliveries.
func (r *SQLiteRepository) GetEntryVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM expenses WHERE id = ?`, id).Scan(&version)
	if err != nil {
		return 0, notFoundOr(err, "get entry version")
	}
	return version, nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, f LedgerFilter) ([]core.LedgerEntry, error) {
	query := `SELECT id, entry_date, kind, title, payer, created_at FROM expenses WHERE deleted_at IS NULL`
	var args []any
	if f.Year != 0 && f.Month != 0 {
		query += ` AND substr(entry_date, 1, 7) = ?`
		args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	query += ` ORDER BY entry_date DESC, id DESC`
	return r.queryEntries(ctx, query, args...)
}

// ListEntriesInRange returns entries with entry_date in [from, to],
// inclusive. The reporting job uses this for its daily and weekly
// windows.
func (r *SQLiteRepository) ListEntriesInRange(ctx context.Context, from, to core.Date) ([]core.LedgerEntry, error) {
	query := `SELECT id, entry_date, kind, title, payer, created_at FROM expenses
		WHERE deleted_at IS NULL AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, id`
	return r.queryEntries(ctx, query, formatDate(from), formatDate(to))
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var (
			e       core.LedgerEntry
			date    string
			created string
		)
		if err := rows.Scan(&e.ID, &date, &e.Kind, &e.Title, &e.Payer, &created); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		e.CreatedAt = parseStamp(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].Amounts, err = r.entryAmounts(ctx, entries[i].ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// UpdateEntry rewrites the entry and its amount rows and bumps the sync
// version. The new version is returned for the bookkeeping queue message.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`UPDATE expenses SET entry_date = ?, kind = ?, title = ?, payer = ?, version = version + 1
		 WHERE id = ? AND deleted_at IS NULL RETURNING version`,
		formatDate(e.Date), e.Kind, e.Title, e.Payer, e.ID).Scan(&version)
	if err != nil {
		return 0, notFoundOr(err, "update ledger entry")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_amounts WHERE expense_id = ?`, e.ID); err != nil {
		return 0, fmt.Errorf("clear ledger amounts: %w", err)
	}
	if err := insertAmounts(ctx, tx, `INSERT INTO expense_amounts (expense_id, position, user_name, amount_won) VALUES (?, ?, ?, ?)`, e.ID, e.Amounts); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ledger update: %w", err)
	}
	return version, nil
}

// SoftDeleteEntry hides the entry from reads while keeping the row so the
// bookkeeping worker can still resolve it. The bumped version is returned
// for the delete queue message.
func (r *SQLiteRepository) SoftDeleteEntry(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE expenses SET deleted_at = ?, version = version + 1
		 WHERE id = ? AND deleted_at IS NULL RETURNING version`, nowStamp(), id).Scan(&version)
	if err != nil {
		return 0, notFoundOr(err, "soft delete ledger entry")
	}

	slog.InfoContext(ctx, "Ledger entry soft-deleted", "id", id, "version", version)
	return version, nil
}

func (r *SQLiteRepository) entryAmounts(ctx context.Context, id int64) ([]core.UserAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_name, amount_won FROM expense_amounts WHERE expense_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load ledger amounts: %w", err)
	}
	defer rows.Close()

	var amounts []core.UserAmount
	for rows.Next() {
		var ua core.UserAmount
		if err := rows.Scan(&ua.User, &ua.Amount.Won); err != nil {
			return nil, fmt.Errorf("scan ledger amount: %w", err)
		}
		amounts = append(amounts, ua)
	}
	return amounts, rows.Err()
}

func insertAmounts(ctx context.Context, tx *sql.Tx, query string, id int64, amounts []core.UserAmount) error {
	for i, ua := range amounts {
		if _, err := tx.ExecContext(ctx, query, id, i, ua.User, ua.Amount.Won); err != nil {
			return fmt.Errorf("insert amount row %d: %w", i, err)
		}
	}
	return nil
}
