package task

import (
	"slices"
	"time"

	"github.com/fastygo/sitetasks/domain"
)

// Tasks returns a copy of the live set in store order.
func (uc *UseCase) Tasks() []domain.Task {
	return uc.graph.snapshot()
}

// Task returns one live task by id.
func (uc *UseCase) Task(id string) (domain.Task, bool) {
	return uc.graph.get(id)
}

// TopLevel returns tasks without a parent. An empty projectID matches all.
func (uc *UseCase) TopLevel(projectID string) []domain.Task {
	return uc.filter(func(t domain.Task) bool {
		return t.IsTopLevel() && (projectID == "" || t.ProjectID == projectID)
	})
}

// Children returns the direct children of parentID.
func (uc *UseCase) Children(parentID string) []domain.Task {
	return uc.filter(func(t domain.Task) bool {
		return t.ParentTaskID == parentID && parentID != ""
	})
}

// Descendants returns every task below id in pre-order.
func (uc *UseCase) Descendants(id string) []domain.Task {
	return descendants(uc.graph.snapshot(), id)
}

// Ancestors returns the chain from the root down to the direct parent of id.
func (uc *UseCase) Ancestors(id string) []domain.Task {
	return ancestors(uc.graph.snapshot(), id)
}

func (uc *UseCase) CountDescendants(id string) int {
	return len(uc.Descendants(id))
}

// ByUser returns tasks that list userID among their assignees.
func (uc *UseCase) ByUser(userID string) []domain.Task {
	return uc.filter(func(t domain.Task) bool { return t.IsAssignedTo(userID) })
}

func (uc *UseCase) ByStatus(status domain.Status) []domain.Task {
	return uc.filter(func(t domain.Task) bool { return t.CurrentStatus == status })
}

func (uc *UseCase) ByPriority(priority domain.Priority) []domain.Task {
	return uc.filter(func(t domain.Task) bool { return t.Priority == priority })
}

// Overdue returns unfinished tasks whose due date is before ref.
func (uc *UseCase) Overdue(ref time.Time) []domain.Task {
	return uc.filter(func(t domain.Task) bool { return t.IsOverdue(ref) })
}

// Starred returns the tasks on userID's shortlist.
func (uc *UseCase) Starred(userID string) []domain.Task {
	return uc.filter(func(t domain.Task) bool { return t.IsStarredBy(userID) })
}

func (uc *UseCase) filter(keep func(domain.Task) bool) []domain.Task {
	var out []domain.Task
	for _, t := range uc.graph.snapshot() {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// childIndex maps a parent id to its children's positions in tasks.
func childIndex(tasks []domain.Task) map[string][]int {
	index := make(map[string][]int)
	for i, t := range tasks {
		if t.ParentTaskID != "" {
			index[t.ParentTaskID] = append(index[t.ParentTaskID], i)
		}
	}
	return index
}

func descendants(tasks []domain.Task, id string) []domain.Task {
	index := childIndex(tasks)
	visited := map[string]bool{id: true}

	var out []domain.Task
	var walk func(parent string)
	walk = func(parent string) {
		for _, i := range index[parent] {
			child := tasks[i]
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			out = append(out, child)
			walk(child.ID)
		}
	}
	walk(id)
	return out
}

func ancestors(tasks []domain.Task, id string) []domain.Task {
	byID := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = i
	}
	i, ok := byID[id]
	if !ok {
		return nil
	}

	var chain []domain.Task
	seen := map[string]bool{id: true}
	for parent := tasks[i].ParentTaskID; parent != "" && !seen[parent]; {
		j, ok := byID[parent]
		if !ok {
			break
		}
		seen[parent] = true
		chain = append(chain, tasks[j])
		parent = tasks[j].ParentTaskID
	}
	slices.Reverse(chain)
	return chain
}
