package repository

import (
	"context"

	"github.com/fastygo/sitetasks/domain"
)

// TaskFilter narrows task queries. Empty fields do not filter.
type TaskFilter struct {
	ProjectID        string
	AssigneeID       string
	ParentIDs        []string
	IncludeCancelled bool
	// Limit of zero returns every matching row.
	Limit  int
	Offset int
}

type TaskRepository interface {
	// GetByID returns the task even when it is cancelled.
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Insert(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	// Delete removes the task and, through the store's cascade, its descendants.
	Delete(ctx context.Context, id string) error
}

type TaskUpdateRepository interface {
	Insert(ctx context.Context, update *domain.TaskUpdate) (*domain.TaskUpdate, error)
	// ListByTasks returns the updates of the given tasks ordered by timestamp
	// ascending. No ids means every update.
	ListByTasks(ctx context.Context, taskIDs ...string) ([]domain.TaskUpdate, error)
	// Delete removes one update. It compensates an insert whose task write
	// failed.
	Delete(ctx context.Context, id string) error
}

type ReadStatusRepository interface {
	Upsert(ctx context.Context, status domain.ReadStatus) error
	ListByUser(ctx context.Context, userID string) ([]domain.ReadStatus, error)
}
