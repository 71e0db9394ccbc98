package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeProject
	scopeUser
)

// fetchScope remembers the last list fetch so a change notification can
// refresh the same view.
type fetchScope struct {
	kind scopeKind
	id   string
}

// FetchAll replaces the local set with every live task and its updates. On
// failure the set is emptied and LastError reports why.
func (uc *UseCase) FetchAll(ctx context.Context) []domain.Task {
	uc.setScope(fetchScope{kind: scopeAll})
	tasks, err := uc.load(ctx, repository.TaskFilter{}, true)
	return uc.settle(ctx, "fetch all", tasks, err)
}

// FetchByProject replaces the local set with the live tasks of one project.
func (uc *UseCase) FetchByProject(ctx context.Context, projectID string) []domain.Task {
	uc.setScope(fetchScope{kind: scopeProject, id: projectID})
	tasks, err := uc.load(ctx, repository.TaskFilter{ProjectID: projectID}, false)
	return uc.settle(ctx, "fetch by project", tasks, err)
}

// FetchByUser loads the tasks assigned to userID together with their direct
// children. The returned tasks embed those children one level deep; the local
// set holds both, flat.
func (uc *UseCase) FetchByUser(ctx context.Context, userID string) []domain.Task {
	uc.setScope(fetchScope{kind: scopeUser, id: userID})

	assigned, err := uc.tasks.List(ctx, repository.TaskFilter{AssigneeID: userID})
	if err != nil {
		return uc.settle(ctx, "fetch by user", nil, err)
	}

	var children []domain.Task
	if len(assigned) > 0 {
		children, err = uc.tasks.List(ctx, repository.TaskFilter{ParentIDs: idsOf(assigned)})
		if err != nil {
			return uc.settle(ctx, "fetch by user", nil, err)
		}
	}

	all := append(assigned, children...)
	all = dedupe(all)
	if err := uc.attachUpdates(ctx, all, false); err != nil {
		return uc.settle(ctx, "fetch by user", nil, err)
	}
	uc.repair(ctx, all)
	uc.graph.replace(all, nil)

	byParent := make(map[string][]domain.Task)
	for _, t := range all {
		if t.ParentTaskID != "" {
			byParent[t.ParentTaskID] = append(byParent[t.ParentTaskID], t)
		}
	}
	result := make([]domain.Task, 0, len(assigned))
	for _, t := range all {
		if !t.IsAssignedTo(userID) {
			continue
		}
		node := t.Clone()
		for _, child := range byParent[t.ID] {
			node.Children = append(node.Children, child.Clone())
		}
		result = append(result, node)
	}
	return result
}

// FetchByID loads one live task and upserts it locally. It returns nil on any
// failure, which makes it usable as an existence check. A task that no longer
// exists or was cancelled is dropped from the local set.
func (uc *UseCase) FetchByID(ctx context.Context, id string) *domain.Task {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.graph.remove(id)
		}
		uc.log(ctx).Warn("fetch task failed", zap.String("task_id", id), zap.Error(err))
		return nil
	}
	if task.IsCancelled() {
		uc.graph.remove(id)
		return nil
	}

	updates, err := uc.updates.ListByTasks(ctx, id)
	if err != nil {
		uc.log(ctx).Warn("fetch task updates failed", zap.String("task_id", id), zap.Error(err))
		return nil
	}
	task.Updates = updates

	uc.graph.upsert(*task)
	return task
}

// Refresh repeats the most recent list fetch.
func (uc *UseCase) Refresh(ctx context.Context) []domain.Task {
	uc.scopeMu.Lock()
	scope := uc.scope
	uc.scopeMu.Unlock()

	switch scope.kind {
	case scopeProject:
		return uc.FetchByProject(ctx, scope.id)
	case scopeUser:
		return uc.FetchByUser(ctx, scope.id)
	default:
		return uc.FetchAll(ctx)
	}
}

func (uc *UseCase) setScope(scope fetchScope) {
	uc.scopeMu.Lock()
	uc.scope = scope
	uc.scopeMu.Unlock()
}

func (uc *UseCase) load(ctx context.Context, filter repository.TaskFilter, allUpdates bool) ([]domain.Task, error) {
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := uc.attachUpdates(ctx, tasks, allUpdates); err != nil {
		return nil, err
	}
	uc.repair(ctx, tasks)
	return tasks, nil
}

// attachUpdates joins progress updates onto their owning tasks.
func (uc *UseCase) attachUpdates(ctx context.Context, tasks []domain.Task, all bool) error {
	if len(tasks) == 0 {
		return nil
	}
	var ids []string
	if !all {
		ids = idsOf(tasks)
	}
	updates, err := uc.updates.ListByTasks(ctx, ids...)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
		tasks[i].Updates = nil
	}
	for _, u := range updates {
		if i, ok := index[u.TaskID]; ok {
			tasks[i].Updates = append(tasks[i].Updates, u)
		}
	}
	return nil
}

// repair closes self-assigned tasks that reached 100% without ever being
// reviewed. Remote failures are logged; the local copy is still marked.
func (uc *UseCase) repair(ctx context.Context, tasks []domain.Task) {
	for i := range tasks {
		t := &tasks[i]
		if t.CompletionPercentage != 100 || !t.IsSelfAssigned() || t.IsReviewAccepted() || t.ReviewedBy != "" {
			continue
		}
		by, at := uc.reviewStamp(t.AssignedBy)
		patch := domain.TaskPatch{
			ReviewAccepted: domain.Bool(true),
			ReviewedBy:     by,
			ReviewedAt:     at,
			CurrentStatus:  domain.StatusPtr(domain.StatusCompleted),
		}
		patch.Apply(t)

		if _, err := uc.tasks.Update(ctx, t.ID, patch); err != nil {
			uc.log(ctx).Warn("auto-review of self-assigned task failed", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		uc.log(ctx).Info("self-assigned task auto-reviewed", zap.String("task_id", t.ID))
	}
}

func (uc *UseCase) settle(ctx context.Context, operation string, tasks []domain.Task, err error) []domain.Task {
	if err != nil {
		uc.log(ctx).Warn("task fetch failed", zap.String("operation", operation), zap.Error(err))
		uc.graph.replace(nil, domain.RemoteError(operation, err))
		return nil
	}
	uc.graph.replace(tasks, nil)
	return cloneAll(tasks)
}

func dedupe(tasks []domain.Task) []domain.Task {
	seen := make(map[string]struct{}, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
