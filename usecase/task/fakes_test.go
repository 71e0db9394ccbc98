package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

var errRemote = errors.New("connection reset by peer")

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// remote is an in-memory stand-in for the data service with per-call failure
// injection. Calls are named "tasks.Update", "updates.Insert" and so on.
type remote struct {
	mu      sync.Mutex
	tasks   []domain.Task
	updates []domain.TaskUpdate
	reads   map[string]domain.ReadStatus
	users   map[string]domain.User
	fail    map[string]error
	calls   []string
	seq     int
}

func newRemote() *remote {
	return &remote{
		reads: make(map[string]domain.ReadStatus),
		users: make(map[string]domain.User),
		fail:  make(map[string]error),
	}
}

func (r *remote) failOn(call string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[call] = err
}

func (r *remote) heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = make(map[string]error)
}

func (r *remote) enter(call string) error {
	r.calls = append(r.calls, call)
	return r.fail[call]
}

func (r *remote) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *remote) countCalls(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *remote) task(id string) (domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Task{}, false
}

// dump serializes the remote tasks and updates for equality checks.
func (r *remote) dump(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(struct {
		Tasks   []domain.Task       `json:"tasks"`
		Updates []domain.TaskUpdate `json:"updates"`
	}{r.tasks, r.updates})
	if err != nil {
		t.Fatalf("dump remote: %v", err)
	}
	return string(raw)
}

// seed stores tasks as-is, filling root ids for top-level tasks.
func (r *remote) seed(tasks ...domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tasks {
		if t.RootTaskID == "" && t.ParentTaskID == "" {
			t.RootTaskID = t.ID
		}
		r.tasks = append(r.tasks, t.Clone())
	}
}

type fakeTasks struct{ r *remote }

func (f fakeTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("tasks.GetByID"); err != nil {
		return nil, err
	}
	for _, t := range f.r.tasks {
		if t.ID == id {
			c := t.Clone()
			return &c, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (f fakeTasks) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("tasks.List"); err != nil {
		return nil, err
	}
	var out []domain.Task
	for _, t := range f.r.tasks {
		switch {
		case !filter.IncludeCancelled && t.IsCancelled():
		case filter.ProjectID != "" && t.ProjectID != filter.ProjectID:
		case filter.AssigneeID != "" && !t.IsAssignedTo(filter.AssigneeID):
		case filter.ParentIDs != nil && !slices.Contains(filter.ParentIDs, t.ParentTaskID):
		default:
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f fakeTasks) Insert(_ context.Context, task *domain.Task) (*domain.Task, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("tasks.Insert"); err != nil {
		return nil, err
	}
	stored := task.Clone()
	stored.ID = f.r.nextID("task")
	if stored.ParentTaskID == "" {
		stored.RootTaskID = stored.ID
	}
	stored.CreatedAt = testNow
	stored.UpdatedAt = testNow
	f.r.tasks = append(f.r.tasks, stored)
	out := stored.Clone()
	return &out, nil
}

func (f fakeTasks) Update(_ context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("tasks.Update"); err != nil {
		return nil, err
	}
	for i := range f.r.tasks {
		if f.r.tasks[i].ID == id {
			patch.Apply(&f.r.tasks[i])
			out := f.r.tasks[i].Clone()
			return &out, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (f fakeTasks) Delete(_ context.Context, id string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("tasks.Delete"); err != nil {
		return err
	}
	doomed := map[string]bool{id: true}
	found := false
	for changed := true; changed; {
		changed = false
		for _, t := range f.r.tasks {
			if t.ID == id {
				found = true
			}
			if doomed[t.ParentTaskID] && !doomed[t.ID] {
				doomed[t.ID] = true
				changed = true
			}
		}
	}
	if !found {
		return domain.ErrTaskNotFound
	}
	f.r.tasks = slices.DeleteFunc(f.r.tasks, func(t domain.Task) bool { return doomed[t.ID] })
	return nil
}

type fakeUpdates struct{ r *remote }

func (f fakeUpdates) Insert(_ context.Context, update *domain.TaskUpdate) (*domain.TaskUpdate, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("updates.Insert"); err != nil {
		return nil, err
	}
	stored := *update
	stored.ID = f.r.nextID("update")
	stored.Photos = slices.Clone(update.Photos)
	f.r.updates = append(f.r.updates, stored)
	return &stored, nil
}

func (f fakeUpdates) Delete(_ context.Context, id string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("updates.Delete"); err != nil {
		return err
	}
	n := len(f.r.updates)
	f.r.updates = slices.DeleteFunc(f.r.updates, func(u domain.TaskUpdate) bool { return u.ID == id })
	if len(f.r.updates) == n {
		return domain.ErrUpdateNotFound
	}
	return nil
}

// updateCount reports how many update rows the remote holds for a task.
func (r *remote) updateCount(taskID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.updates {
		if u.TaskID == taskID {
			n++
		}
	}
	return n
}

func (f fakeUpdates) ListByTasks(_ context.Context, taskIDs ...string) ([]domain.TaskUpdate, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("updates.ListByTasks"); err != nil {
		return nil, err
	}
	var out []domain.TaskUpdate
	for _, u := range f.r.updates {
		if len(taskIDs) == 0 || slices.Contains(taskIDs, u.TaskID) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type fakeReads struct{ r *remote }

func (f fakeReads) Upsert(_ context.Context, status domain.ReadStatus) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("reads.Upsert"); err != nil {
		return err
	}
	f.r.reads[status.Key()] = status
	return nil
}

func (f fakeReads) ListByUser(_ context.Context, userID string) ([]domain.ReadStatus, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("reads.ListByUser"); err != nil {
		return nil, err
	}
	var out []domain.ReadStatus
	for _, s := range f.r.reads {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeUsers struct{ r *remote }

func (f fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if err := f.r.enter("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := f.r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (f fakeUsers) Upsert(_ context.Context, user *domain.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.users[user.ID] = *user
	return nil
}

type recordingBuffer struct {
	mu    sync.Mutex
	items []domain.ReadStatus
	err   error
}

func (b *recordingBuffer) BufferReadStatus(_ context.Context, status domain.ReadStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.items = append(b.items, status)
	return nil
}

func newStore(t *testing.T, r *remote, buf *recordingBuffer) *UseCase {
	t.Helper()
	deps := Dependencies{
		Tasks:      fakeTasks{r},
		Updates:    fakeUpdates{r},
		ReadStatus: fakeReads{r},
		Users:      fakeUsers{r},
	}
	if buf != nil {
		deps.Buffer = buf
	}
	return New(deps, nil, WithClock(func() time.Time { return testNow }))
}

func draft(by string, to ...string) domain.TaskDraft {
	return domain.TaskDraft{
		ProjectID:  "proj-1",
		Title:      "Pour foundation",
		AssignedBy: by,
		AssignedTo: to,
	}
}

// pendingTask is a live task assigned by u1 to u2 awaiting a decision.
func pendingTask(id string) domain.Task {
	return domain.Task{
		ID:            id,
		ProjectID:     "proj-1",
		Title:         "Install conduit " + id,
		Priority:      domain.PriorityMedium,
		Category:      domain.CategoryElectrical,
		CurrentStatus: domain.StatusNotStarted,
		AssignedTo:    []string{"u2"},
		AssignedBy:    "u1",
		Accepted:      domain.Bool(false),
		CreatedAt:     testNow.Add(-time.Hour),
		UpdatedAt:     testNow.Add(-time.Hour),
	}
}

func childOf(parent domain.Task, id string) domain.Task {
	c := pendingTask(id)
	c.ParentTaskID = parent.ID
	c.NestingLevel = parent.NestingLevel + 1
	c.RootTaskID = parent.Root()
	return c
}
