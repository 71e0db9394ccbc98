package task

import (
	"context"

	"github.com/fastygo/sitetasks/domain"
)

// SubmitForReview flags completed work for the creator's sign-off. Callers
// check the percentage; submitting twice is harmless.
func (uc *UseCase) SubmitForReview(ctx context.Context, id string) (*domain.Task, error) {
	return uc.mutate(ctx, id, "submit for review", func(current domain.Task) (mutation, error) {
		if current.ReadyForReview {
			return mutation{}, nil
		}
		return mutation{patch: domain.TaskPatch{ReadyForReview: domain.Bool(true)}}, nil
	})
}

// AcceptCompletion closes the task and drops it from everyone's shortlist.
func (uc *UseCase) AcceptCompletion(ctx context.Context, id, userID string) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.MissingField("user_id")
	}
	return uc.mutate(ctx, id, "accept completion", func(current domain.Task) (mutation, error) {
		by, at := uc.reviewStamp(userID)
		return mutation{patch: domain.TaskPatch{
			ReadyForReview:       domain.Bool(false),
			ReviewedBy:           by,
			ReviewedAt:           at,
			ReviewAccepted:       domain.Bool(true),
			CurrentStatus:        domain.StatusPtr(domain.StatusCompleted),
			CompletionPercentage: domain.Int(100),
			StarredByUsers:       []string{},
		}}, nil
	})
}

// RejectCompletion sends submitted work back for correction. The percentage
// stays where it is; the work needs fixing, not restarting.
func (uc *UseCase) RejectCompletion(ctx context.Context, id, userID, reason string) (*domain.Task, error) {
	switch {
	case userID == "":
		return nil, domain.MissingField("user_id")
	case reason == "":
		return nil, domain.MissingField("reason")
	}
	return uc.mutate(ctx, id, "reject completion", func(current domain.Task) (mutation, error) {
		by, at := uc.reviewStamp(userID)
		return mutation{patch: domain.TaskPatch{
			ReadyForReview: domain.Bool(false),
			ReviewedBy:     by,
			ReviewedAt:     at,
			ReviewAccepted: domain.Bool(false),
			CurrentStatus:  domain.StatusPtr(domain.StatusRejected),
			DeclineReason:  domain.String(reason),
			Accepted:       domain.Bool(false),
		}}, nil
	})
}

func (uc *UseCase) SubmitSubTaskForReview(ctx context.Context, parentID, subTaskID string) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.SubmitForReview(ctx, subTaskID)
}

func (uc *UseCase) AcceptSubTaskCompletion(ctx context.Context, parentID, subTaskID, userID string) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.AcceptCompletion(ctx, subTaskID, userID)
}

func (uc *UseCase) RejectSubTaskCompletion(ctx context.Context, parentID, subTaskID, userID, reason string) (*domain.Task, error) {
	if err := uc.checkChild(ctx, parentID, subTaskID); err != nil {
		return nil, err
	}
	return uc.RejectCompletion(ctx, subTaskID, userID, reason)
}
