package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

// publisher announces successful writes on the change feed. Publish failures
// are logged; the write itself already succeeded.
type publisher struct {
	feed   repository.ChangeFeed
	logger *zap.Logger
}

func (p publisher) publish(ctx context.Context, event domain.ChangeEvent) {
	event.CreatedAt = time.Now()
	if err := p.feed.Publish(ctx, event); err != nil {
		p.logger.Warn("change publish failed",
			zap.String("table", string(event.Table)),
			zap.String("operation", string(event.Operation)),
			zap.String("task_id", event.TaskID),
			zap.Error(err))
	}
}

type publishingTasks struct {
	repository.TaskRepository
	publisher
}

// PublishingTasks wraps a task repository so other sessions hear about its writes.
func PublishingTasks(next repository.TaskRepository, feed repository.ChangeFeed, logger *zap.Logger) repository.TaskRepository {
	if feed == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &publishingTasks{TaskRepository: next, publisher: publisher{feed: feed, logger: logger}}
}

func (r *publishingTasks) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	created, err := r.TaskRepository.Insert(ctx, task)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, domain.ChangeEvent{
		Table:     domain.ChangeTableTasks,
		Operation: domain.ChangeInsert,
		TaskID:    created.ID,
		RecordID:  created.ID,
	})
	return created, nil
}

func (r *publishingTasks) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	updated, err := r.TaskRepository.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, domain.ChangeEvent{
		Table:     domain.ChangeTableTasks,
		Operation: domain.ChangeUpdate,
		TaskID:    id,
		RecordID:  id,
	})
	return updated, nil
}

func (r *publishingTasks) Delete(ctx context.Context, id string) error {
	if err := r.TaskRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{
		Table:     domain.ChangeTableTasks,
		Operation: domain.ChangeDelete,
		TaskID:    id,
		RecordID:  id,
	})
	return nil
}

type publishingUpdates struct {
	repository.TaskUpdateRepository
	publisher
}

// PublishingUpdates wraps a progress update repository the same way.
func PublishingUpdates(next repository.TaskUpdateRepository, feed repository.ChangeFeed, logger *zap.Logger) repository.TaskUpdateRepository {
	if feed == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &publishingUpdates{TaskUpdateRepository: next, publisher: publisher{feed: feed, logger: logger}}
}

func (r *publishingUpdates) Insert(ctx context.Context, update *domain.TaskUpdate) (*domain.TaskUpdate, error) {
	stored, err := r.TaskUpdateRepository.Insert(ctx, update)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, domain.ChangeEvent{
		Table:     domain.ChangeTableTaskUpdates,
		Operation: domain.ChangeInsert,
		TaskID:    stored.TaskID,
		RecordID:  stored.ID,
	})
	return stored, nil
}

func (r *publishingUpdates) Delete(ctx context.Context, id string) error {
	if err := r.TaskUpdateRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{
		Table:     domain.ChangeTableTaskUpdates,
		Operation: domain.ChangeDelete,
		RecordID:  id,
	})
	return nil
}
