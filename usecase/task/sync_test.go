package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
)

func TestHandleChange(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	root := pendingTask("t1")
	r.seed(root, childOf(root, "t1-a"), pendingTask("t2"))
	uc := newStore(t, r, nil)
	require.Len(t, uc.FetchByProject(ctx, "proj-1"), 3)

	t.Run("task update re-fetches one task", func(t *testing.T) {
		r.mu.Lock()
		r.tasks[2].Title = "Pour slab"
		r.mu.Unlock()
		lists := r.countCalls("tasks.List")

		uc.HandleChange(ctx, domain.ChangeEvent{
			Table:     domain.ChangeTableTasks,
			Operation: domain.ChangeUpdate,
			TaskID:    "t2",
		})

		got, _ := uc.Task("t2")
		assert.Equal(t, "Pour slab", got.Title)
		assert.Equal(t, lists, r.countCalls("tasks.List"))
	})

	t.Run("new progress update re-fetches its task", func(t *testing.T) {
		r.mu.Lock()
		r.updates = append(r.updates, domain.TaskUpdate{ID: "up-9", TaskID: "t1", UserID: "u2", Timestamp: testNow})
		r.mu.Unlock()

		uc.HandleChange(ctx, domain.ChangeEvent{
			Table:     domain.ChangeTableTaskUpdates,
			Operation: domain.ChangeInsert,
			TaskID:    "t1",
			RecordID:  "up-9",
		})

		got, _ := uc.Task("t1")
		require.Len(t, got.Updates, 1)
		assert.Equal(t, "up-9", got.Updates[0].ID)
	})

	t.Run("insert refreshes the last scope", func(t *testing.T) {
		elsewhere := pendingTask("t9")
		elsewhere.ProjectID = "proj-9"
		r.seed(pendingTask("t3"), elsewhere)

		uc.HandleChange(ctx, domain.ChangeEvent{
			Table:     domain.ChangeTableTasks,
			Operation: domain.ChangeInsert,
			TaskID:    "t3",
		})

		assert.Equal(t, []string{"t1", "t1-a", "t2", "t3"}, idsOf(uc.Tasks()))
	})

	t.Run("delete drops the subtree", func(t *testing.T) {
		uc.HandleChange(ctx, domain.ChangeEvent{
			Table:     domain.ChangeTableTasks,
			Operation: domain.ChangeDelete,
			TaskID:    "t1",
		})

		assert.Equal(t, []string{"t2", "t3"}, idsOf(uc.Tasks()))
	})

	t.Run("untargeted event refreshes", func(t *testing.T) {
		lists := r.countCalls("tasks.List")
		uc.HandleChange(ctx, domain.ChangeEvent{Table: domain.ChangeTableTasks, Operation: domain.ChangeUpdate})
		assert.Equal(t, lists+1, r.countCalls("tasks.List"))
		assert.Equal(t, []string{"t1", "t1-a", "t2", "t3"}, idsOf(uc.Tasks()))
	})
}
