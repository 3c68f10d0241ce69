package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intake-service/internal/domain"
)

// RosterRepository defines persistence access for the employee allow-list.
type RosterRepository interface {
	Create(ctx context.Context, entry *domain.RosterEntry) error
	Update(ctx context.Context, entry *domain.RosterEntry) error
	GetByID(ctx context.Context, id int64) (*domain.RosterEntry, error)
	GetByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error)
	GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error)
	ListActive(ctx context.Context) ([]domain.RosterEntry, error)
	Deactivate(ctx context.Context, id int64) error
	Purge(ctx context.Context, id int64) error
}

type rosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository returns a Postgres-backed implementation.
func NewRosterRepository(pool *pgxpool.Pool) RosterRepository {
	return &rosterRepository{pool: pool}
}

func (r *rosterRepository) Create(ctx context.Context, entry *domain.RosterEntry) error {
	const query = `
        INSERT INTO employees (telegram_id, name, active)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		entry.TelegramID,
		entry.Name,
		entry.Active,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *rosterRepository) Update(ctx context.Context, entry *domain.RosterEntry) error {
	const query = `
        UPDATE employees SET name=$1, active=$2
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query,
		entry.Name,
		entry.Active,
		entry.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *rosterRepository) GetByID(ctx context.Context, id int64) (*domain.RosterEntry, error) {
	const query = `
        SELECT id, telegram_id, name, active, created_at
        FROM employees WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *rosterRepository) GetByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error) {
	const query = `
        SELECT id, telegram_id, name, active, created_at
        FROM employees WHERE telegram_id=$1`
	return r.fetchSingle(ctx, query, identity)
}

func (r *rosterRepository) GetActiveByTelegramID(ctx context.Context, identity domain.Identity) (*domain.RosterEntry, error) {
	const query = `
        SELECT id, telegram_id, name, active, created_at
        FROM employees WHERE telegram_id=$1 AND active=TRUE`
	return r.fetchSingle(ctx, query, identity)
}

func (r *rosterRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RosterEntry, error) {
	var entry domain.RosterEntry
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&entry.ID,
		&entry.TelegramID,
		&entry.Name,
		&entry.Active,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *rosterRepository) ListActive(ctx context.Context) ([]domain.RosterEntry, error) {
	const query = `
        SELECT id, telegram_id, name, active, created_at
        FROM employees WHERE active=TRUE ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RosterEntry
	for rows.Next() {
		var entry domain.RosterEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TelegramID,
			&entry.Name,
			&entry.Active,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *rosterRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE employees SET active=FALSE WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Purge removes the entry permanently, cascading its submissions first.
func (r *rosterRepository) Purge(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE roster_entry_id=$1`, id); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `DELETE FROM employees WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
