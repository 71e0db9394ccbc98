package task

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
)

// CreateTask inserts a top-level task and returns its id. Nothing is added
// locally until the remote insert succeeds.
func (uc *UseCase) CreateTask(ctx context.Context, draft domain.TaskDraft) (string, error) {
	return uc.create(ctx, draft, nil)
}

// CreateSubTask inserts a direct child of parentID.
func (uc *UseCase) CreateSubTask(ctx context.Context, parentID string, draft domain.TaskDraft) (string, error) {
	parent := uc.resolve(ctx, parentID)
	if parent == nil {
		return "", domain.ErrParentNotFound
	}
	return uc.create(ctx, draft, parent)
}

// CreateNestedSubTask inserts a child of parentSubID, which must belong to the
// tree of parentID.
func (uc *UseCase) CreateNestedSubTask(ctx context.Context, parentID, parentSubID string, draft domain.TaskDraft) (string, error) {
	root := uc.resolve(ctx, parentID)
	if root == nil {
		return "", domain.ErrParentNotFound
	}
	parent := uc.resolve(ctx, parentSubID)
	if parent == nil {
		return "", domain.ErrParentNotFound
	}
	if parent.Root() != root.Root() {
		return "", domain.ErrNotSubTask
	}
	return uc.create(ctx, draft, parent)
}

func (uc *UseCase) create(ctx context.Context, draft domain.TaskDraft, parent *domain.Task) (string, error) {
	if parent != nil && draft.ProjectID == "" {
		draft.ProjectID = parent.ProjectID
	}
	if err := draft.Validate(); err != nil {
		return "", err
	}

	task := &domain.Task{
		ProjectID:     draft.ProjectID,
		Title:         draft.Title,
		Description:   draft.Description,
		Priority:      draft.Priority,
		Category:      draft.Category,
		DueDate:       draft.DueDate,
		CurrentStatus: domain.StatusNotStarted,
		AssignedTo:    slices.Clone(draft.AssignedTo),
		AssignedBy:    draft.AssignedBy,
		Attachments:   slices.Clone(draft.Attachments),
		Accepted:      domain.Bool(false),
	}
	if draft.IsSelfAccepted() {
		task.Accepted = domain.Bool(true)
		task.AcceptedBy = draft.AssignedBy
		task.AcceptedAt = uc.timestamp()
	}
	if parent != nil {
		task.ParentTaskID = parent.ID
		task.NestingLevel = parent.NestingLevel + 1
		task.RootTaskID = parent.Root()
	}

	created, err := uc.tasks.Insert(ctx, task)
	if err != nil {
		uc.log(ctx).Warn("task insert failed", zap.String("title", draft.Title), zap.Error(err))
		return "", domain.RemoteError("create task", err)
	}
	if created.RootTaskID == "" {
		created.RootTaskID = created.ID
	}

	uc.graph.upsert(*created)
	return created.ID, nil
}

// resolve finds a task locally, falling back to a remote fetch.
func (uc *UseCase) resolve(ctx context.Context, id string) *domain.Task {
	if id == "" {
		return nil
	}
	if t, ok := uc.graph.get(id); ok {
		return &t
	}
	return uc.FetchByID(ctx, id)
}
