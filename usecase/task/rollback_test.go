package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
)

func TestFailedMutationRestoresState(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		fail string
		run  func(uc *UseCase) error
	}{
		{"update task", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.UpdateTask(ctx, "t2", domain.TaskPatch{Title: domain.String("Frame walls"), AssignedTo: []string{"u7"}})
			return err
		}},
		{"accept task", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.AcceptTask(ctx, "t2", "u2")
			return err
		}},
		{"decline task on update insert", "updates.Insert", func(uc *UseCase) error {
			_, err := uc.DeclineTask(ctx, "t2", "u2", "overloaded")
			return err
		}},
		{"decline task on task update", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.DeclineTask(ctx, "t2", "u2", "overloaded")
			return err
		}},
		{"submit for review", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.SubmitForReview(ctx, "t2")
			return err
		}},
		{"accept completion", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.AcceptCompletion(ctx, "t3", "u1")
			return err
		}},
		{"reject completion", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.RejectCompletion(ctx, "t3", "u1", "redo")
			return err
		}},
		{"add update", "updates.Insert", func(uc *UseCase) error {
			_, err := uc.AddUpdate(ctx, "t2", domain.TaskUpdate{UserID: "u2", CompletionPercentage: 40, Photos: []string{"p.jpg"}})
			return err
		}},
		{"add update on task update", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.AddUpdate(ctx, "t2", domain.TaskUpdate{UserID: "u2", CompletionPercentage: 100})
			return err
		}},
		{"toggle star", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.ToggleStar(ctx, "t3", "u9")
			return err
		}},
		{"sub-task update", "tasks.Update", func(uc *UseCase) error {
			_, err := uc.UpdateSubTask(ctx, "t1", "t1-a", domain.TaskPatch{CompletionPercentage: domain.Int(100)})
			return err
		}},
		{"delete subtree", "tasks.Delete", func(uc *UseCase) error {
			return uc.DeleteTask(ctx, "t1")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRemote()
			root := pendingTask("t1")
			review := pendingTask("t3")
			review.Accepted = domain.Bool(true)
			review.CurrentStatus = domain.StatusInProgress
			review.CompletionPercentage = 100
			review.ReadyForReview = true
			review.StarredByUsers = []string{"u1"}
			r.seed(root, childOf(root, "t1-a"), pendingTask("t2"), review, childOf(childOf(root, "t1-a"), "t1-a-i"))
			uc := newStore(t, r, nil)
			uc.FetchAll(ctx)

			before := uc.Tasks()
			beforeJSON, err := json.Marshal(before)
			require.NoError(t, err)
			remoteBefore := r.dump(t)

			r.failOn(tc.fail, errRemote)
			err = tc.run(uc)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemote), "got %v", err)
			assert.ErrorIs(t, err, errRemote)

			after := uc.Tasks()
			assert.Equal(t, before, after)
			afterJSON, err := json.Marshal(after)
			require.NoError(t, err)
			assert.JSONEq(t, string(beforeJSON), string(afterJSON))

			r.heal()
			assert.JSONEq(t, remoteBefore, r.dump(t), "remote store keeps no trace of the failed change")
		})
	}
}

func TestInvalidTransitionLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	rejected := pendingTask("t1")
	rejected.CurrentStatus = domain.StatusRejected
	r.seed(rejected)
	uc := newStore(t, r, nil)
	uc.FetchAll(ctx)
	before := uc.Tasks()

	_, err := uc.AcceptTask(ctx, "t1", "u2")
	assert.ErrorIs(t, err, domain.ErrCannotAcceptRejected)
	_, err = uc.UpdateTask(ctx, "t1", domain.TaskPatch{Accepted: domain.Bool(true)})
	assert.ErrorIs(t, err, domain.ErrCannotAcceptRejected)
	_, err = uc.UpdateTask(ctx, "t1", domain.TaskPatch{CompletionPercentage: domain.Int(120)})
	assert.ErrorIs(t, err, domain.ErrInvalidPercentage)

	assert.Equal(t, before, uc.Tasks())
	assert.Zero(t, r.countCalls("tasks.Update"))
}

// A failed write to one task must not undo a confirmed write to another.
func TestRollbackIsScopedToTouchedTasks(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	r.seed(pendingTask("t1"), pendingTask("t2"))
	uc := newStore(t, r, nil)
	uc.FetchAll(ctx)

	_, err := uc.AcceptTask(ctx, "t1", "u2")
	require.NoError(t, err)

	r.failOn("tasks.Update", errRemote)
	_, err = uc.AcceptTask(ctx, "t2", "u2")
	require.Error(t, err)

	t1, _ := uc.Task("t1")
	t2, _ := uc.Task("t2")
	assert.Equal(t, domain.AssignmentAccepted, t1.AssignmentState())
	assert.Equal(t, domain.AssignmentPending, t2.AssignmentState())
	assert.Equal(t, []string{"t1", "t2"}, idsOf(uc.Tasks()))
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	root := pendingTask("t1")
	child := childOf(root, "t1-a")
	r.seed(root, pendingTask("t2"), child, childOf(child, "t1-a-i"))
	uc := newStore(t, r, nil)
	uc.FetchAll(ctx)

	require.NoError(t, uc.DeleteTask(ctx, "t1"))
	assert.Equal(t, []string{"t2"}, idsOf(uc.Tasks()))
	_, ok := r.task("t1-a-i")
	assert.False(t, ok)

	t.Run("already gone remotely", func(t *testing.T) {
		r.seed(pendingTask("t9"))
		uc.FetchAll(ctx)
		r.mu.Lock()
		r.tasks = r.tasks[:1]
		r.mu.Unlock()

		require.NoError(t, uc.DeleteTask(ctx, "t9"))
		_, ok := uc.Task("t9")
		assert.False(t, ok)
	})

	t.Run("unknown everywhere", func(t *testing.T) {
		err := uc.DeleteTask(ctx, "nope")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	})
}

func TestFailedTaskWriteDiscardsInsertedUpdate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		run  func(uc *UseCase) error
	}{
		{"decline", func(uc *UseCase) error {
			_, err := uc.DeclineTask(ctx, "t2", "u2", "overloaded")
			return err
		}},
		{"progress", func(uc *UseCase) error {
			_, err := uc.AddUpdate(ctx, "t2", domain.TaskUpdate{UserID: "u2", CompletionPercentage: 60})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRemote()
			r.seed(pendingTask("t2"))
			uc := newStore(t, r, nil)
			uc.FetchAll(ctx)

			r.failOn("tasks.Update", errRemote)
			require.Error(t, tc.run(uc))
			r.heal()

			assert.Equal(t, 1, r.countCalls("updates.Delete"))
			assert.Zero(t, r.updateCount("t2"))

			got := uc.FetchByID(ctx, "t2")
			require.NotNil(t, got)
			assert.Equal(t, domain.StatusNotStarted, got.CurrentStatus)
			assert.Zero(t, got.CompletionPercentage)
			assert.Empty(t, got.Updates)
		})
	}

	t.Run("compensation fails", func(t *testing.T) {
		r := newRemote()
		r.seed(pendingTask("t2"))
		uc := newStore(t, r, nil)
		uc.FetchAll(ctx)
		before := uc.Tasks()

		r.failOn("tasks.Update", errRemote)
		r.failOn("updates.Delete", errRemote)
		_, err := uc.DeclineTask(ctx, "t2", "u2", "overloaded")
		assert.ErrorIs(t, err, errRemote)
		assert.Equal(t, before, uc.Tasks())
	})
}
