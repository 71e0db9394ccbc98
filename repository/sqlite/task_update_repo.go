package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

const updateColumns = `id, task_id, user_id, description, photos, completion_percentage, status, timestamp`

type taskUpdateRepository struct {
	db *sql.DB
}

// NewTaskUpdateRepository returns a SQLite-backed TaskUpdateRepository.
func NewTaskUpdateRepository(db *sql.DB) repository.TaskUpdateRepository {
	return &taskUpdateRepository{db: db}
}

func (r *taskUpdateRepository) Insert(ctx context.Context, update *domain.TaskUpdate) (*domain.TaskUpdate, error) {
	if update == nil || update.TaskID == "" {
		return nil, domain.ErrInvalidPayload
	}

	stored := *update
	stored.ID = uuid.NewString()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	stored.Timestamp = stored.Timestamp.UTC()

	const query = `INSERT INTO task_updates (` + updateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query,
		stored.ID,
		stored.TaskID,
		stored.UserID,
		stored.Description,
		encodeList(stored.Photos),
		stored.CompletionPercentage,
		string(stored.Status),
		stored.Timestamp,
	); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+updateColumns+` FROM task_updates WHERE id = ?`, stored.ID)
	return scanTaskUpdate(row)
}

func (r *taskUpdateRepository) ListByTasks(ctx context.Context, taskIDs ...string) ([]domain.TaskUpdate, error) {
	query := `SELECT ` + updateColumns + ` FROM task_updates`
	var args []interface{}
	if len(taskIDs) > 0 {
		query += ` WHERE task_id IN (` + placeholders(len(taskIDs)) + `)`
		args = stringArgs(taskIDs)
	}
	query += ` ORDER BY timestamp ASC, rowid ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_updates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUpdateNotFound
	}
	return nil
}

func scanTaskUpdate(row interface {
	Scan(dest ...interface{}) error
}) (*domain.TaskUpdate, error) {
	var update domain.TaskUpdate
	var photos, status string
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
	update.Photos = decodeList(photos)
	update.Status = domain.Status(status)
	return &update, nil
}
