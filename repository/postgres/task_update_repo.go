package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type taskUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewTaskUpdateRepository returns a Postgres-backed TaskUpdateRepository.
func NewTaskUpdateRepository(pool *pgxpool.Pool) repository.TaskUpdateRepository {
	return &taskUpdateRepository{pool: pool}
}

func (r *taskUpdateRepository) Insert(ctx context.Context, update *domain.TaskUpdate) (*domain.TaskUpdate, error) {
	if update == nil || update.TaskID == "" {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO task_updates (id, task_id, user_id, description, photos, completion_percentage, status, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	RETURNING id, task_id, user_id, description, photos, completion_percentage, status, timestamp
	`

	stored := *update
	stored.ID = uuid.NewString()

	row := r.pool.QueryRow(ctx, query,
		stored.ID,
		stored.TaskID,
		stored.UserID,
		stored.Description,
		marshalList(stored.Photos),
		stored.CompletionPercentage,
		string(stored.Status),
		nullTime(stored.Timestamp),
	)
	return scanTaskUpdate(row)
}

func (r *taskUpdateRepository) ListByTasks(ctx context.Context, taskIDs ...string) ([]domain.TaskUpdate, error) {
	const query = `
	SELECT id, task_id, user_id, description, photos, completion_percentage, status, timestamp
	FROM task_updates
	WHERE ($1::text[] IS NULL OR task_id = ANY($1::text[]))
	ORDER BY timestamp ASC
	`
	var ids interface{}
	if len(taskIDs) > 0 {
		ids = taskIDs
	}

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []domain.TaskUpdate
	for rows.Next() {
		update, err := scanTaskUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *update)
	}
	return updates, rows.Err()
}

func (r *taskUpdateRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_updates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUpdateNotFound
	}
	return nil
}

func scanTaskUpdate(row interface {
	Scan(dest ...interface{}) error
}) (*domain.TaskUpdate, error) {
	var update domain.TaskUpdate
	var (
		photos []byte
		status string
	)
	if err := row.Scan(
		&update.ID,
		&update.TaskID,
		&update.UserID,
		&update.Description,
		&photos,
		&update.CompletionPercentage,
		&status,
		&update.Timestamp,
	); err != nil {
		return nil, err
	}
	update.Photos = unmarshalList(photos)
	update.Status = domain.Status(status)
	return &update, nil
}
