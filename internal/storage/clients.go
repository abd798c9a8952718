package storage

import (
	"context"
	"fmt"
	"log/slog"

	"dops/internal/core"
)

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (name, description, contact, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Description, c.Contact, nowStamp())
	if err != nil {
		return core.Client{}, fmt.Errorf("create client: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Client{}, fmt.Errorf("client insert id: %w", err)
	}
	c.ID = id

	slog.InfoContext(ctx, "Client created", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id int64) (core.Client, error) {
	var (
		c       core.Client
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, contact, created_at FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Contact, &created)
	if err != nil {
		return core.Client{}, notFoundOr(err, "get client")
	}
	c.CreatedAt = parseStamp(created)
	return c, nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, contact, created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []core.Client
	for rows.Next() {
		var (
			c       core.Client
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Contact, &created); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.CreatedAt = parseStamp(created)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, description = ?, contact = ? WHERE id = ?`,
		c.Name, c.Description, c.Contact, c.ID)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteClient removes a client. Deletion is refused while any task still
// references the client; the FK RESTRICT in the schema backs this up.
func (r *SQLiteRepository) DeleteClient(ctx context.Context, id int64) error {
	n, err := r.CountTasksForClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.ErrClientInUse
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Client deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) CountTasksForClient(ctx context.Context, clientID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE client_id = ?`, clientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks for client: %w", err)
	}
	return n, nil
}
