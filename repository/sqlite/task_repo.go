package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

const taskColumns = `id, project_id, parent_task_id, nesting_level, root_task_id, title, description,
	priority, category, due_date, current_status, completion_percentage, assigned_to, assigned_by,
	attachments, accepted, accepted_by, accepted_at, decline_reason, ready_for_review, reviewed_by,
	reviewed_at, review_accepted, starred_by_users, cancelled_at, cancelled_by, created_at, updated_at`

type taskRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTaskRepository returns a SQLite-backed implementation of TaskRepository.
func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db, now: time.Now}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.AssigneeID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tasks.assigned_to) WHERE json_each.value = ?)")
		args = append(args, filter.AssigneeID)
	}
	if len(filter.ParentIDs) > 0 {
		where = append(where, "parent_task_id IN ("+placeholders(len(filter.ParentIDs))+")")
		args = append(args, stringArgs(filter.ParentIDs)...)
	}
	if !filter.IncludeCancelled {
		where = append(where, "cancelled_at IS NULL")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	limit := repository.ClampLimit(filter.Limit)
	if limit == 0 {
		// negative LIMIT is unbounded in SQLite
		limit = -1
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	now := r.now().UTC()

	const query = `
	INSERT INTO tasks (id, project_id, parent_task_id, nesting_level, root_task_id, title, description,
		priority, category, due_date, current_status, completion_percentage, assigned_to, assigned_by,
		attachments, accepted, accepted_by, accepted_at, starred_by_users, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
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
		encodeList(task.AssignedTo),
		task.AssignedBy,
		encodeList(task.Attachments),
		optionalBool(task.Accepted),
		nullString(task.AcceptedBy),
		optionalTime(task.AcceptedAt),
		encodeList(task.StarredByUsers),
		now,
		now,
	); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, task.ID)
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	cols := repository.PatchColumns(patch)
	if len(cols) == 0 {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, col.Name+" = ?")
		args = append(args, encodeValue(col.Value))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		parentID, acceptedBy, declineReason, reviewedBy, cancelledBy sql.NullString
		priority, category, status                                   string
		assignedTo, attachments, starred                             string
		due, acceptedAt, reviewedAt, cancelledAt                     sql.NullTime
		accepted, reviewAccepted                                     sql.NullBool
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
		&accepted,
		&acceptedBy,
		&acceptedAt,
		&declineReason,
		&task.ReadyForReview,
		&reviewedBy,
		&reviewedAt,
		&reviewAccepted,
		&starred,
		&cancelledAt,
		&cancelledBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.ParentTaskID = parentID.String
	task.Priority = domain.Priority(priority)
	task.Category = domain.Category(category)
	task.CurrentStatus = domain.Status(status)
	task.DueDate = timePtr(due)
	task.AssignedTo = decodeList(assignedTo)
	task.Attachments = decodeList(attachments)
	task.Accepted = boolPtr(accepted)
	task.AcceptedBy = acceptedBy.String
	task.AcceptedAt = timePtr(acceptedAt)
	task.DeclineReason = declineReason.String
	task.ReviewedBy = reviewedBy.String
	task.ReviewedAt = timePtr(reviewedAt)
	task.ReviewAccepted = boolPtr(reviewAccepted)
	task.StarredByUsers = decodeList(starred)
	task.CancelledAt = timePtr(cancelledAt)
	task.CancelledBy = cancelledBy.String

	return &task, nil
}
