package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intake-service/internal/domain"
)

// SubmissionRepository encapsulates the authoritative record store.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *domain.Submission) error
	ListByRosterEntry(ctx context.Context, rosterEntryID int64, limit int) ([]domain.Submission, error)
	CountAll(ctx context.Context) (int64, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

// photo URLs are stored as a comma-delimited list, matching the export shape.
const photoURLDelimiter = ","

func (r *submissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	const query = `
        INSERT INTO submissions (external_key, roster_entry_id, category, master_name, comment, photo_urls)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		sub.ExternalKey,
		sub.RosterEntryID,
		sub.Category,
		sub.MasterName,
		sub.Comment,
		strings.Join(sub.PhotoURLs, photoURLDelimiter),
	).Scan(&sub.ID, &sub.CreatedAt)
}

func (r *submissionRepository) ListByRosterEntry(ctx context.Context, rosterEntryID int64, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, external_key, roster_entry_id, category, master_name, comment, photo_urls, created_at
        FROM submissions WHERE roster_entry_id=$1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, rosterEntryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		var urls string
		if err := rows.Scan(
			&sub.ID,
			&sub.ExternalKey,
			&sub.RosterEntryID,
			&sub.Category,
			&sub.MasterName,
			&sub.Comment,
			&urls,
			&sub.CreatedAt,
		); err != nil {
			return nil, err
		}
		if urls != "" {
			sub.PhotoURLs = strings.Split(urls, photoURLDelimiter)
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (r *submissionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
