package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type readStatusRepository struct {
	pool *pgxpool.Pool
}

// NewReadStatusRepository returns a Postgres-backed ReadStatusRepository.
func NewReadStatusRepository(pool *pgxpool.Pool) repository.ReadStatusRepository {
	return &readStatusRepository{pool: pool}
}

func (r *readStatusRepository) Upsert(ctx context.Context, status domain.ReadStatus) error {
	if status.UserID == "" || status.TaskID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO task_read_status (user_id, task_id, read_at)
	VALUES ($1, $2, COALESCE($3, NOW()))
	ON CONFLICT (user_id, task_id) DO UPDATE
	SET read_at = EXCLUDED.read_at
	`
	_, err := r.pool.Exec(ctx, query, status.UserID, status.TaskID, nullTime(status.ReadAt))
	return err
}

func (r *readStatusRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReadStatus, error) {
	const query = `
	SELECT user_id, task_id, read_at
	FROM task_read_status
	WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.ReadStatus
	for rows.Next() {
		var status domain.ReadStatus
		if err := rows.Scan(&status.UserID, &status.TaskID, &status.ReadAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}
