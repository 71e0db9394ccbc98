package task

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
)

const tempUpdatePrefix = "temp-"

// mutation is what a single optimistic operation changes on one task.
type mutation struct {
	patch domain.TaskPatch
	// update, when set, is appended to the task's updates and inserted remotely.
	update *domain.TaskUpdate
}

func (m mutation) isEmpty() bool {
	return m.patch.IsEmpty() && m.update == nil
}

// planFunc inspects the current record and decides the mutation. Returning an
// error aborts before anything is changed; an empty mutation is a no-op.
type planFunc func(current domain.Task) (mutation, error)

// mutate applies the planned change locally, confirms it remotely and restores
// the previous record when the remote call fails.
func (uc *UseCase) mutate(ctx context.Context, id, operation string, plan planFunc) (*domain.Task, error) {
	if _, err := uc.local(ctx, id); err != nil {
		return nil, err
	}

	var (
		planned mutation
		noop    bool
		tempID  string
	)

	before, after, err := uc.graph.update(id, func(t *domain.Task) error {
		m, err := plan(t.Clone())
		if err != nil {
			return err
		}
		if m.isEmpty() {
			noop = true
			return nil
		}
		m.patch.Apply(t)
		if m.update != nil {
			tempID = tempUpdatePrefix + uuid.NewString()
			pending := *m.update
			pending.ID = tempID
			pending.TaskID = t.ID
			pending.Photos = slices.Clone(pending.Photos)
			t.Updates = append(t.Updates, pending)
		}
		t.UpdatedAt = uc.now()
		planned = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return &after, nil
	}

	var stored *domain.TaskUpdate
	if planned.update != nil {
		row := *planned.update
		row.TaskID = id
		stored, err = uc.updates.Insert(ctx, &row)
		if err != nil {
			uc.rollback(ctx, operation, err, before)
			return nil, domain.RemoteError(operation, err)
		}
	}
	if !planned.patch.IsEmpty() {
		if _, err := uc.tasks.Update(ctx, id, planned.patch); err != nil {
			if stored != nil {
				uc.discardUpdate(ctx, operation, *stored)
			}
			uc.rollback(ctx, operation, err, before)
			return nil, domain.RemoteError(operation, err)
		}
	}

	if stored != nil {
		uc.graph.renameUpdate(id, tempID, *stored)
		for i := range after.Updates {
			if after.Updates[i].ID == tempID {
				after.Updates[i] = *stored
			}
		}
	}
	return &after, nil
}

// discardUpdate deletes an update row whose task write failed, so the remote
// store does not keep a record of a change that never happened.
func (uc *UseCase) discardUpdate(ctx context.Context, operation string, stored domain.TaskUpdate) {
	if err := uc.updates.Delete(ctx, stored.ID); err != nil {
		uc.log(ctx).Error("orphaned task update left in remote store",
			zap.String("operation", operation),
			zap.String("task_id", stored.TaskID),
			zap.String("update_id", stored.ID),
			zap.Error(err))
	}
}

// local returns the task from the local set, loading it when another fetch
// scope has replaced the set since the caller last saw it.
func (uc *UseCase) local(ctx context.Context, id string) (domain.Task, error) {
	if t, ok := uc.graph.get(id); ok {
		return t, nil
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, domain.RemoteError("load task", err)
	}
	if task.IsCancelled() {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	updates, err := uc.updates.ListByTasks(ctx, id)
	if err != nil {
		return domain.Task{}, domain.RemoteError("load task", err)
	}
	task.Updates = updates
	uc.graph.upsert(*task)
	return *task, nil
}

func (uc *UseCase) rollback(ctx context.Context, operation string, cause error, entries ...entry) {
	uc.graph.restore(entries...)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.task.ID)
	}
	uc.log(ctx).Warn("remote call failed, optimistic change rolled back",
		zap.String("operation", operation),
		zap.Strings("task_ids", ids),
		zap.Error(cause))
}

// UpdateTask merges fields into a task. Reassignment resets the acceptance
// cycle, and driving a self-assigned task to 100% closes its review.
func (uc *UseCase) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "update task", func(current domain.Task) (mutation, error) {
		p := patch
		reassigned := p.AssignedTo != nil && !sameMembers(p.AssignedTo, current.AssignedTo)
		if !reassigned && current.Accepted != nil && *current.Accepted && p.Accepted != nil && !*p.Accepted {
			// acceptance only resets through reassignment
			p.Accepted, p.AcceptedBy, p.AcceptedAt = nil, nil, nil
		}
		if p.Accepted != nil && *p.Accepted {
			merged := current.Clone()
			p.Apply(&merged)
			if merged.CurrentStatus == domain.StatusRejected {
				return mutation{}, domain.ErrCannotAcceptRejected
			}
		}
		if reassigned {
			uc.reassign(current, &p)
		}
		uc.normalize(current, &p)
		return mutation{patch: p}, nil
	})
}

// reassign restarts the acceptance cycle for a new set of assignees. The
// creation rule applies again when the creator is among them.
func (uc *UseCase) reassign(current domain.Task, p *domain.TaskPatch) {
	p.CurrentStatus = domain.StatusPtr(domain.StatusNotStarted)
	p.DeclineReason = domain.String("")
	if slices.Contains(p.AssignedTo, current.AssignedBy) {
		p.Accepted = domain.Bool(true)
		p.AcceptedBy = domain.String(current.AssignedBy)
		p.AcceptedAt = uc.timestamp()
		return
	}
	p.Accepted = domain.Bool(false)
	p.AcceptedBy = domain.String("")
}

// normalize keeps the merged record consistent: a rejected task is never
// accepted, self-assigned work at 100% is reviewed by its creator, and other
// work cannot be completed at 100% without a review submission.
func (uc *UseCase) normalize(current domain.Task, p *domain.TaskPatch) {
	merged := current.Clone()
	p.Apply(&merged)

	if merged.CurrentStatus == domain.StatusRejected && merged.Accepted != nil && *merged.Accepted {
		p.Accepted = domain.Bool(false)
	}

	if p.CompletionPercentage != nil && *p.CompletionPercentage == 100 &&
		merged.IsSelfAssigned() && !merged.IsReviewAccepted() && !merged.ReadyForReview {
		p.ReviewAccepted = domain.Bool(true)
		p.ReviewedBy = domain.String(merged.AssignedBy)
		p.ReviewedAt = uc.timestamp()
		p.CurrentStatus = domain.StatusPtr(domain.StatusCompleted)
		return
	}

	touched := p.CompletionPercentage != nil || p.CurrentStatus != nil
	if touched && merged.CompletionPercentage == 100 && merged.CurrentStatus == domain.StatusCompleted &&
		!merged.IsReviewAccepted() && !merged.ReadyForReview && !merged.IsSelfAssigned() {
		p.CurrentStatus = domain.StatusPtr(domain.StatusInProgress)
	}
}

// sameMembers compares assignee lists as multisets.
func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func (uc *UseCase) reviewStamp(userID string) (*string, *time.Time) {
	return domain.String(userID), uc.timestamp()
}
