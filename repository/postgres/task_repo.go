package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

const taskColumns = `id, project_id, parent_task_id, nesting_level, root_task_id, title, description,
	priority, category, due_date, current_status, completion_percentage, assigned_to, assigned_by,
	attachments, accepted, accepted_by, accepted_at, decline_reason, ready_for_review, reviewed_by,
	reviewed_at, review_accepted, starred_by_users, cancelled_at, cancelled_by, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR project_id = $1)
	  AND ($2 = '' OR assigned_to @> jsonb_build_array($2::text))
	  AND ($3::text[] IS NULL OR parent_task_id = ANY($3::text[]))
	  AND ($4 OR cancelled_at IS NULL)
	ORDER BY created_at DESC
	LIMIT $5::bigint OFFSET $6
	`
	var parents interface{}
	if len(filter.ParentIDs) > 0 {
		parents = filter.ParentIDs
	}

	rows, err := r.pool.Query(ctx, query,
		filter.ProjectID,
		filter.AssigneeID,
		parents,
		filter.IncludeCancelled,
		pageLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.RootTaskID == "" {
		task.RootTaskID = task.ID
	}

	query := `
	INSERT INTO tasks (id, project_id, parent_task_id, nesting_level, root_task_id, title, description,
		priority, category, due_date, current_status, completion_percentage, assigned_to, assigned_by,
		attachments, accepted, accepted_by, accepted_at, starred_by_users)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query,
		task.ID,
		task.ProjectID,
		nullString(task.ParentTaskID),
		task.NestingLevel,
		task.RootTaskID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Category),
		optionalTime(task.DueDate),
		string(task.CurrentStatus),
		task.CompletionPercentage,
		marshalList(task.AssignedTo),
		task.AssignedBy,
		marshalList(task.Attachments),
		optionalBool(task.Accepted),
		nullString(task.AcceptedBy),
		optionalTime(task.AcceptedAt),
		marshalList(task.StarredByUsers),
	)
	return scanTask(row)
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	cols := repository.PatchColumns(patch)
	if len(cols) == 0 {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)
	args = append(args, id)
	for _, col := range cols {
		args = append(args, encodeValue(col.Value))
		sets = append(sets, fmt.Sprintf("%s = $%d", col.Name, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// pageLimit yields NULL for an unbounded list, which Postgres reads as
// LIMIT ALL.
func pageLimit(limit int) interface{} {
	if n := repository.ClampLimit(limit); n > 0 {
		return n
	}
	return nil
}

func encodeValue(v interface{}) interface{} {
	if list, ok := v.([]string); ok {
		return marshalList(list)
	}
	return v
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		parentID, acceptedBy, declineReason, reviewedBy, cancelledBy *string
		priority, category, status                                   string
		assignedTo, attachments, starred                              []byte
		due, acceptedAt, reviewedAt, cancelledAt                      *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&parentID,
		&task.NestingLevel,
		&task.RootTaskID,
		&task.Title,
		&task.Description,
		&priority,
		&category,
		&due,
		&status,
		&task.CompletionPercentage,
		&assignedTo,
		&task.AssignedBy,
		&attachments,
		&task.Accepted,
		&acceptedBy,
		&acceptedAt,
		&declineReason,
		&task.ReadyForReview,
		&reviewedBy,
		&reviewedAt,
		&task.ReviewAccepted,
		&starred,
		&cancelledAt,
		&cancelledBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.ParentTaskID = orEmpty(parentID)
	task.Priority = domain.Priority(priority)
	task.Category = domain.Category(category)
	task.CurrentStatus = domain.Status(status)
	task.DueDate = due
	task.AssignedTo = unmarshalList(assignedTo)
	task.Attachments = unmarshalList(attachments)
	task.AcceptedBy = orEmpty(acceptedBy)
	task.AcceptedAt = acceptedAt
	task.DeclineReason = orEmpty(declineReason)
	task.ReviewedBy = orEmpty(reviewedBy)
	task.ReviewedAt = reviewedAt
	task.StarredByUsers = unmarshalList(starred)
	task.CancelledAt = cancelledAt
	task.CancelledBy = orEmpty(cancelledBy)

	return &task, nil
}
