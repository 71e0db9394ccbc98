package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
)

// HandleChange re-synchronizes the local set after a remote change. Events
// that name a changed task re-fetch just that task, a deleted task is dropped
// with its subtree, and anything else repeats the last list fetch.
func (uc *UseCase) HandleChange(ctx context.Context, event domain.ChangeEvent) {
	log := uc.log(ctx).With(
		zap.String("table", string(event.Table)),
		zap.String("operation", string(event.Operation)),
		zap.String("task_id", event.TaskID),
	)

	if event.Targeted() {
		if uc.FetchByID(ctx, event.TaskID) == nil {
			log.Debug("changed task is gone or unreachable")
		}
		return
	}

	if event.Operation == domain.ChangeDelete && event.Table == domain.ChangeTableTasks && event.TaskID != "" {
		removed := uc.graph.remove(append([]string{event.TaskID}, idsOf(uc.Descendants(event.TaskID))...)...)
		log.Debug("deleted task dropped locally", zap.Int("removed", len(removed)))
		return
	}

	uc.Refresh(ctx)
	if err := uc.LastError(); err != nil {
		log.Warn("refresh after change failed", zap.Error(err))
	}
}
