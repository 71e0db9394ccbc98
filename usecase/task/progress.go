package task

import (
	"context"

	"github.com/fastygo/sitetasks/domain"
)

// AddUpdate appends a progress report and moves the task's completion and
// status along with it. The task is re-fetched afterwards so the temporary
// update id and the derived fields match the remote record.
func (uc *UseCase) AddUpdate(ctx context.Context, taskID string, update domain.TaskUpdate) (*domain.Task, error) {
	switch {
	case update.UserID == "":
		return nil, domain.MissingField("user_id")
	case update.CompletionPercentage < 0 || update.CompletionPercentage > 100:
		return nil, domain.ErrInvalidPercentage
	case update.Status != "" && !update.Status.IsValid():
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown status "+string(update.Status))
	}

	updated, err := uc.mutate(ctx, taskID, "add update", func(current domain.Task) (mutation, error) {
		p := domain.TaskPatch{
			CompletionPercentage: domain.Int(update.CompletionPercentage),
			CurrentStatus:        domain.StatusPtr(progressStatus(current, update)),
		}
		uc.normalize(current, &p)

		row := update
		row.Status = *p.CurrentStatus
		if row.Timestamp.IsZero() {
			row.Timestamp = uc.now()
		}
		return mutation{patch: p, update: &row}, nil
	})
	if err != nil {
		return nil, err
	}

	if fresh := uc.FetchByID(ctx, taskID); fresh != nil {
		return fresh, nil
	}
	return updated, nil
}

// progressStatus derives the task status an update implies when the reporter
// did not state one.
func progressStatus(current domain.Task, update domain.TaskUpdate) domain.Status {
	switch {
	case update.Status != "":
		return update.Status
	case update.CompletionPercentage == 100:
		return domain.StatusCompleted
	case update.CompletionPercentage > 0:
		return domain.StatusInProgress
	case current.CurrentStatus != "":
		return current.CurrentStatus
	default:
		return domain.StatusNotStarted
	}
}
