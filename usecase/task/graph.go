package task

import (
	"sync"

	"github.com/fastygo/sitetasks/domain"
)

// graph is the flat, parent-linked task set shared by every operation.
// All values handed out are deep copies.
type graph struct {
	mu    sync.RWMutex
	tasks []domain.Task
	err   error
}

// entry remembers where a record lived so a rollback can put it back.
type entry struct {
	index int
	task  domain.Task
}

func newGraph() *graph {
	return &graph{}
}

func (g *graph) snapshot() []domain.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneAll(g.tasks)
}

func (g *graph) replace(tasks []domain.Task, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = cloneAll(tasks)
	g.err = err
}

func (g *graph) lastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

func (g *graph) get(id string) (domain.Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i := g.indexOf(id); i >= 0 {
		return g.tasks[i].Clone(), true
	}
	return domain.Task{}, false
}

// upsert replaces the record with the same id or appends a new one.
func (g *graph) upsert(task domain.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := g.indexOf(task.ID); i >= 0 {
		g.tasks[i] = task.Clone()
		return
	}
	g.tasks = append(g.tasks, task.Clone())
}

// update runs fn against a copy of the record and stores the result when fn
// succeeds. It returns the record as it was before.
func (g *graph) update(id string, fn func(t *domain.Task) error) (entry, domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(id)
	if i < 0 {
		return entry{}, domain.Task{}, domain.ErrTaskNotFound
	}
	before := entry{index: i, task: g.tasks[i].Clone()}
	next := g.tasks[i].Clone()
	if err := fn(&next); err != nil {
		return entry{}, domain.Task{}, err
	}
	g.tasks[i] = next
	return before, next.Clone(), nil
}

// remove drops the given ids and reports what was removed, in index order.
func (g *graph) remove(ids ...string) []entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var removed []entry
	kept := g.tasks[:0:0]
	for i, t := range g.tasks {
		if _, ok := drop[t.ID]; ok {
			removed = append(removed, entry{index: i, task: t})
			continue
		}
		kept = append(kept, t)
	}
	g.tasks = kept
	return removed
}

// restore puts records back at their original positions. Entries must be in
// ascending index order, as returned by remove.
func (g *graph) restore(entries ...entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range entries {
		if i := g.indexOf(e.task.ID); i >= 0 {
			g.tasks[i] = e.task.Clone()
			continue
		}
		at := e.index
		if at > len(g.tasks) {
			at = len(g.tasks)
		}
		g.tasks = append(g.tasks, domain.Task{})
		copy(g.tasks[at+1:], g.tasks[at:])
		g.tasks[at] = e.task.Clone()
	}
}

// renameUpdate swaps a temporary update id for the one the remote assigned.
func (g *graph) renameUpdate(taskID, tempID string, stored domain.TaskUpdate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(taskID)
	if i < 0 {
		return
	}
	for j, u := range g.tasks[i].Updates {
		if u.ID == tempID {
			g.tasks[i].Updates[j] = stored
			return
		}
	}
}

func (g *graph) indexOf(id string) int {
	for i := range g.tasks {
		if g.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return nil
	}
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
