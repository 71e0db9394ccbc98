package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/internal/config"
	sqlitedb "github.com/fastygo/sitetasks/internal/infrastructure/sqlite"
	"github.com/fastygo/sitetasks/repository"
	"github.com/fastygo/sitetasks/repository/sqlite"
	"github.com/fastygo/sitetasks/usecase/task"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), config.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "tasks.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTask(title string, by string, to ...string) *domain.Task {
	return &domain.Task{
		ProjectID:     "proj-1",
		Title:         title,
		Priority:      domain.PriorityHigh,
		Category:      domain.CategoryPlumbing,
		CurrentStatus: domain.StatusNotStarted,
		AssignedBy:    by,
		AssignedTo:    to,
		Accepted:      domain.Bool(false),
	}
}

func TestTaskRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTaskRepository(openDB(t))

	due := time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC)
	draft := newTask("Rough-in plumbing", "u1", "u2", "u3")
	draft.DueDate = &due
	draft.Attachments = []string{"plans/level1.pdf"}

	root, err := repo.Insert(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, root.ID)
	assert.Equal(t, root.ID, root.RootTaskID)
	assert.Empty(t, root.ParentTaskID)
	assert.Equal(t, []string{"u2", "u3"}, root.AssignedTo)
	assert.Equal(t, []string{"plans/level1.pdf"}, root.Attachments)
	require.NotNil(t, root.DueDate)
	assert.True(t, due.Equal(*root.DueDate))
	require.NotNil(t, root.Accepted)
	assert.False(t, *root.Accepted)
	assert.Nil(t, root.ReviewAccepted)
	assert.Nil(t, root.StarredByUsers)
	assert.False(t, root.CreatedAt.IsZero())

	reviewed := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, root.ID, domain.TaskPatch{
		CompletionPercentage: domain.Int(100),
		CurrentStatus:        domain.StatusPtr(domain.StatusCompleted),
		ReviewAccepted:       domain.Bool(true),
		ReviewedBy:           domain.String("u1"),
		ReviewedAt:           &reviewed,
		StarredByUsers:       []string{"u2"},
		ReadyForReview:       domain.Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.CompletionPercentage)
	assert.Equal(t, domain.StatusCompleted, updated.CurrentStatus)
	assert.True(t, updated.IsReviewAccepted())
	assert.Equal(t, "u1", updated.ReviewedBy)
	assert.True(t, reviewed.Equal(*updated.ReviewedAt))
	assert.Equal(t, []string{"u2"}, updated.StarredByUsers)

	cleared, err := repo.Update(ctx, root.ID, domain.TaskPatch{StarredByUsers: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.StarredByUsers)

	_, err = repo.Update(ctx, "missing", domain.TaskPatch{Title: domain.String("x")})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTaskRepository(openDB(t))

	root, err := repo.Insert(ctx, newTask("Frame level 2", "u1", "u2"))
	require.NoError(t, err)

	child := newTask("Frame stairwell", "u1", "u3")
	child.ParentTaskID = root.ID
	child.RootTaskID = root.ID
	child.NestingLevel = 1
	child, err = repo.Insert(ctx, child)
	require.NoError(t, err)

	other := newTask("Survey lot", "u1", "u2")
	other.ProjectID = "proj-2"
	other, err = repo.Insert(ctx, other)
	require.NoError(t, err)

	_, err = repo.Update(ctx, other.ID, domain.TaskPatch{CancelledAt: domain.Time(time.Now()), CancelledBy: domain.String("u1")})
	require.NoError(t, err)

	all, err := repo.List(ctx, repository.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	withCancelled, err := repo.List(ctx, repository.TaskFilter{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Len(t, withCancelled, 3)

	mine, err := repo.List(ctx, repository.TaskFilter{AssigneeID: "u2"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, root.ID, mine[0].ID)

	children, err := repo.List(ctx, repository.TaskFilter{ParentIDs: []string{root.ID, "unknown"}})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
	assert.Equal(t, root.ID, children[0].RootTaskID)
	assert.Equal(t, 1, children[0].NestingLevel)

	project, err := repo.List(ctx, repository.TaskFilter{ProjectID: "proj-2", IncludeCancelled: true})
	require.NoError(t, err)
	require.Len(t, project, 1)
	assert.True(t, project[0].IsCancelled())
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tasks := sqlite.NewTaskRepository(db)
	updates := sqlite.NewTaskUpdateRepository(db)
	reads := sqlite.NewReadStatusRepository(db)

	root, err := tasks.Insert(ctx, newTask("Demolition", "u1", "u2"))
	require.NoError(t, err)
	child := newTask("Remove drywall", "u1", "u2")
	child.ParentTaskID = root.ID
	child.RootTaskID = root.ID
	child.NestingLevel = 1
	child, err = tasks.Insert(ctx, child)
	require.NoError(t, err)

	_, err = updates.Insert(ctx, &domain.TaskUpdate{TaskID: child.ID, UserID: "u2", Status: domain.StatusInProgress})
	require.NoError(t, err)
	require.NoError(t, reads.Upsert(ctx, domain.ReadStatus{UserID: "u2", TaskID: child.ID}))

	require.NoError(t, tasks.Delete(ctx, root.ID))

	_, err = tasks.GetByID(ctx, child.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	left, err := updates.ListByTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
	marks, err := reads.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, marks)

	assert.ErrorIs(t, tasks.Delete(ctx, root.ID), domain.ErrTaskNotFound)
}

func TestTaskUpdatesOrdered(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tasks := sqlite.NewTaskRepository(db)
	updates := sqlite.NewTaskUpdateRepository(db)

	a, err := tasks.Insert(ctx, newTask("A", "u1", "u2"))
	require.NoError(t, err)
	b, err := tasks.Insert(ctx, newTask("B", "u1", "u2"))
	require.NoError(t, err)

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i, row := range []struct {
		task string
		at   time.Duration
	}{{a.ID, 2 * time.Minute}, {b.ID, time.Minute}, {a.ID, 0}} {
		stored, err := updates.Insert(ctx, &domain.TaskUpdate{
			TaskID:               row.task,
			UserID:               "u2",
			Description:          "step",
			Photos:               []string{"photo.jpg"},
			CompletionPercentage: (i + 1) * 10,
			Status:               domain.StatusInProgress,
			Timestamp:            base.Add(row.at),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, []string{"photo.jpg"}, stored.Photos)
	}

	forA, err := updates.ListByTasks(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, 30, forA[0].CompletionPercentage)
	assert.Equal(t, 10, forA[1].CompletionPercentage)

	all, err := updates.ListByTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{30, 20, 10}, []int{all[0].CompletionPercentage, all[1].CompletionPercentage, all[2].CompletionPercentage})

	_, err = updates.Insert(ctx, &domain.TaskUpdate{UserID: "u2"})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestReadStatusUpsert(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tasks := sqlite.NewTaskRepository(db)
	reads := sqlite.NewReadStatusRepository(db)

	task, err := tasks.Insert(ctx, newTask("Inspect welds", "u1", "u2"))
	require.NoError(t, err)

	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, reads.Upsert(ctx, domain.ReadStatus{UserID: "u2", TaskID: task.ID, ReadAt: first}))
	require.NoError(t, reads.Upsert(ctx, domain.ReadStatus{UserID: "u2", TaskID: task.ID, ReadAt: first.Add(time.Hour)}))

	marks, err := reads.ListByUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.True(t, first.Add(time.Hour).Equal(marks[0].ReadAt))

	assert.ErrorIs(t, reads.Upsert(ctx, domain.ReadStatus{UserID: "u2"}), domain.ErrInvalidPayload)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := sqlite.NewUserRepository(openDB(t))

	user := &domain.User{ID: "u1", DisplayName: "Ana Pereira", Metadata: map[string]string{"crew": "north"}}
	require.NoError(t, users.Upsert(ctx, user))
	user.DisplayName = "Ana P."
	require.NoError(t, users.Upsert(ctx, user))

	got, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana P.", got.Name())
	assert.Equal(t, "worker", got.Role)
	assert.Equal(t, "north", got.Metadata["crew"])

	_, err = users.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

// The store over a real database: decline, reassign, progress and review.
func TestStoreOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Upsert(ctx, &domain.User{ID: "u2", DisplayName: "Lee"}))

	uc := task.New(task.Dependencies{
		Tasks:      sqlite.NewTaskRepository(db),
		Updates:    sqlite.NewTaskUpdateRepository(db),
		ReadStatus: sqlite.NewReadStatusRepository(db),
		Users:      users,
	}, nil)

	id, err := uc.CreateTask(ctx, domain.TaskDraft{
		ProjectID:  "proj-1",
		Title:      "Install windows",
		AssignedBy: "u1",
		AssignedTo: []string{"u2"},
	})
	require.NoError(t, err)

	declined, err := uc.DeclineTask(ctx, id, "u2", "no ladder")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, declined.AssignedTo)

	_, err = uc.UpdateTask(ctx, id, domain.TaskPatch{AssignedTo: []string{"u3"}})
	require.NoError(t, err)
	_, err = uc.AcceptTask(ctx, id, "u3")
	require.NoError(t, err)

	progressed, err := uc.AddUpdate(ctx, id, domain.TaskUpdate{UserID: "u3", Description: "all framed", CompletionPercentage: 100})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, progressed.CurrentStatus)
	require.Len(t, progressed.Updates, 2)
	assert.Contains(t, progressed.Updates[0].Description, "Lee")

	_, err = uc.SubmitForReview(ctx, id)
	require.NoError(t, err)
	_, err = uc.AcceptCompletion(ctx, id, "u1")
	require.NoError(t, err)

	uc.MarkRead(ctx, "u3", id)

	fresh := task.New(task.Dependencies{
		Tasks:      sqlite.NewTaskRepository(db),
		Updates:    sqlite.NewTaskUpdateRepository(db),
		ReadStatus: sqlite.NewReadStatusRepository(db),
	}, nil)
	loaded := fresh.FetchAll(ctx)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].IsReviewAccepted())
	assert.Equal(t, domain.StatusCompleted, loaded[0].CurrentStatus)
	assert.Equal(t, domain.AssignmentAccepted, loaded[0].AssignmentState())
	assert.Len(t, loaded[0].Updates, 2)

	require.NoError(t, fresh.LoadReadStatus(ctx, "u3"))
	assert.Zero(t, fresh.UnreadCount("u3"))
}

func TestTaskRepositoryListIsUnboundedByDefault(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tasks := sqlite.NewTaskRepository(db)

	const total = repository.MaxPage + 5
	for i := 0; i < total; i++ {
		_, err := tasks.Insert(ctx, newTask(fmt.Sprintf("Anchor bolt %d", i), "u1", "u2"))
		require.NoError(t, err)
	}

	all, err := tasks.List(ctx, repository.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, total)

	page, err := tasks.List(ctx, repository.TaskFilter{Limit: 10, Offset: total - 5})
	require.NoError(t, err)
	assert.Len(t, page, 5)

	capped, err := tasks.List(ctx, repository.TaskFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, capped, repository.MaxPage)

	uc := task.New(task.Dependencies{
		Tasks:   tasks,
		Updates: sqlite.NewTaskUpdateRepository(db),
	}, nil)
	assert.Len(t, uc.FetchAll(ctx), total)
	assert.NoError(t, uc.LastError())
	assert.Len(t, uc.FetchByUser(ctx, "u2"), total)
}

func TestTaskUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tasks := sqlite.NewTaskRepository(db)
	updates := sqlite.NewTaskUpdateRepository(db)

	owner, err := tasks.Insert(ctx, newTask("Set forms", "u1", "u2"))
	require.NoError(t, err)
	stored, err := updates.Insert(ctx, &domain.TaskUpdate{TaskID: owner.ID, UserID: "u2", CompletionPercentage: 20})
	require.NoError(t, err)

	require.NoError(t, updates.Delete(ctx, stored.ID))
	left, err := updates.ListByTasks(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	err = updates.Delete(ctx, stored.ID)
	assert.ErrorIs(t, err, domain.ErrUpdateNotFound)
}
