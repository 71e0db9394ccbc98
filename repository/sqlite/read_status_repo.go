package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type readStatusRepository struct {
	db *sql.DB
}

// NewReadStatusRepository returns a SQLite-backed ReadStatusRepository.
func NewReadStatusRepository(db *sql.DB) repository.ReadStatusRepository {
	return &readStatusRepository{db: db}
}

func (r *readStatusRepository) Upsert(ctx context.Context, status domain.ReadStatus) error {
	if status.UserID == "" || status.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	readAt := status.ReadAt
	if readAt.IsZero() {
		readAt = time.Now()
	}

	const query = `
	INSERT INTO task_read_status (user_id, task_id, read_at)
	VALUES (?, ?, ?)
	ON CONFLICT (user_id, task_id) DO UPDATE
	SET read_at = excluded.read_at
	`
	_, err := r.db.ExecContext(ctx, query, status.UserID, status.TaskID, readAt.UTC())
	return err
}

func (r *readStatusRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReadStatus, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, task_id, read_at FROM task_read_status WHERE user_id = ?`, userID)
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
