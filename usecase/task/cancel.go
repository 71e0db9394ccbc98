package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
)

// CancelTask soft-deletes a task on behalf of its creator. The task leaves the
// local set once the remote confirms, since no fetch will return it again.
func (uc *UseCase) CancelTask(ctx context.Context, id, userID string) error {
	if userID == "" {
		return domain.MissingField("user_id")
	}

	current, ok := uc.graph.get(id)
	if !ok {
		remote, err := uc.tasks.GetByID(ctx, id)
		if err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return domain.ErrTaskNotFound
			}
			return domain.RemoteError("cancel task", err)
		}
		current = *remote
	}

	if userID != current.AssignedBy {
		return domain.ErrOnlyCreatorCanCancel
	}
	if current.IsCancelled() {
		return domain.ErrAlreadyCancelled
	}

	patch := domain.TaskPatch{
		CancelledAt: uc.timestamp(),
		CancelledBy: domain.String(userID),
	}
	if _, err := uc.tasks.Update(ctx, id, patch); err != nil {
		return domain.RemoteError("cancel task", err)
	}

	uc.graph.remove(id)
	uc.log(ctx).Info("task cancelled", zap.String("task_id", id), zap.String("user_id", userID))
	return nil
}

// DeleteTask hard-deletes a task. The remote store cascades to descendants,
// so they are removed locally as well.
func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	if _, ok := uc.graph.get(id); !ok {
		if err := uc.tasks.Delete(ctx, id); err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return err
			}
			return domain.RemoteError("delete task", err)
		}
		return nil
	}

	ids := append([]string{id}, idsOf(uc.Descendants(id))...)
	removed := uc.graph.remove(ids...)

	if err := uc.tasks.Delete(ctx, id); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			// already gone remotely
			return nil
		}
		uc.rollback(ctx, "delete task", err, removed...)
		return domain.RemoteError("delete task", err)
	}
	return nil
}

func idsOf(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
