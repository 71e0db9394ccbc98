package task

import (
	"context"
	"fmt"

	"github.com/fastygo/sitetasks/domain"
)

// AcceptTask moves a pending task to accepted. Accepting an accepted task is a
// no-op; accepting a rejected one is an invalid transition.
func (uc *UseCase) AcceptTask(ctx context.Context, id, userID string) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.MissingField("user_id")
	}
	return uc.mutate(ctx, id, "accept task", func(current domain.Task) (mutation, error) {
		switch current.AssignmentState() {
		case domain.AssignmentAccepted:
			return mutation{}, nil
		case domain.AssignmentRejected:
			return mutation{}, domain.ErrCannotAcceptRejected
		}

		p := domain.TaskPatch{
			Accepted:   domain.Bool(true),
			AcceptedBy: domain.String(userID),
			AcceptedAt: uc.timestamp(),
		}
		if current.CurrentStatus == domain.StatusNotStarted {
			p.CurrentStatus = domain.StatusPtr(domain.StatusInProgress)
		}
		if current.DeclineReason != "" {
			p.DeclineReason = domain.String("")
		}
		return mutation{patch: p}, nil
	})
}

// DeclineTask rejects a pending assignment. The task returns to its creator
// and an audit update naming the decliner is appended on the creator's behalf.
func (uc *UseCase) DeclineTask(ctx context.Context, id, userID, reason string) (*domain.Task, error) {
	switch {
	case userID == "":
		return nil, domain.MissingField("user_id")
	case reason == "":
		return nil, domain.MissingField("reason")
	}

	current, err := uc.local(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkDeclinable(current); err != nil {
		return nil, err
	}

	name := uc.displayName(ctx, userID)

	return uc.mutate(ctx, id, "decline task", func(current domain.Task) (mutation, error) {
		if err := checkDeclinable(current); err != nil {
			return mutation{}, err
		}
		return mutation{
			patch: domain.TaskPatch{
				Accepted:      domain.Bool(false),
				CurrentStatus: domain.StatusPtr(domain.StatusRejected),
				DeclineReason: domain.String(reason),
				AssignedTo:    []string{current.AssignedBy},
			},
			update: &domain.TaskUpdate{
				UserID:               current.AssignedBy,
				Description:          fmt.Sprintf("Task declined by %s. Reason: %s", name, reason),
				CompletionPercentage: current.CompletionPercentage,
				Status:               domain.StatusRejected,
				Timestamp:            uc.now(),
			},
		}, nil
	})
}

func checkDeclinable(t domain.Task) error {
	switch t.AssignmentState() {
	case domain.AssignmentAccepted:
		return domain.ErrCannotRejectAccepted
	case domain.AssignmentRejected:
		return domain.ErrAlreadyRejected
	}
	return nil
}

// AcceptSubTask accepts a child task reached through its parent.
func (uc *UseCase) AcceptSubTask(ctx context.Context, parentID, subTaskID, userID string) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.AcceptTask(ctx, subTaskID, userID)
}

// DeclineSubTask declines a child task reached through its parent.
func (uc *UseCase) DeclineSubTask(ctx context.Context, parentID, subTaskID, userID, reason string) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.DeclineTask(ctx, subTaskID, userID, reason)
}

// UpdateSubTask updates a child task reached through its parent.
func (uc *UseCase) UpdateSubTask(ctx context.Context, parentID, subTaskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.UpdateTask(ctx, subTaskID, patch)
}

func (uc *UseCase) checkChild(ctx context.Context, parentID, childID string) error {
	child, err := uc.local(ctx, childID)
	if err != nil {
		return err
	}
	if child.ParentTaskID != parentID {
		return domain.ErrNotSubTask
	}
	return nil
}
