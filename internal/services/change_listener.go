package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

// ChangeHandler is the part of the task store that reacts to remote changes.
type ChangeHandler interface {
	HandleChange(ctx context.Context, event domain.ChangeEvent)
	Refresh(ctx context.Context) []domain.Task
}

// ListenerConfig tunes the change listener.
type ListenerConfig struct {
	// ResyncInterval schedules a full refresh as a fallback for missed
	// notifications. Zero disables it.
	ResyncInterval time.Duration
	RetryDelay     time.Duration
}

// ChangeListener feeds remote change notifications into the task store.
type ChangeListener struct {
	feed    repository.ChangeFeed
	handler ChangeHandler
	logger  *zap.Logger
	cfg     ListenerConfig
	cron    *cron.Cron

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChangeListener(feed repository.ChangeFeed, handler ChangeHandler, logger *zap.Logger, cfg ListenerConfig) *ChangeListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	l := &ChangeListener{
		feed:    feed,
		handler: handler,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	if cfg.ResyncInterval > 0 {
		schedule := fmt.Sprintf("@every %ds", int(cfg.ResyncInterval.Seconds()))
		_, _ = l.cron.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ResyncInterval)
			defer cancel()
			tasks := l.handler.Refresh(ctx)
			l.logger.Debug("periodic resync finished", zap.Int("tasks", len(tasks)))
		})
	}
	return l
}

// Start subscribes in the background and resubscribes after the feed drops.
func (l *ChangeListener) Start(ctx context.Context) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	if l.feed != nil {
		go l.run(ctx)
	} else {
		// without a feed only the periodic resync runs
		close(l.done)
	}

	l.cron.Start()
	l.logger.Info("change listener started", zap.Duration("resync_interval", l.cfg.ResyncInterval))
}

// Stop ends the subscription and waits for the scheduler to finish.
func (l *ChangeListener) Stop(ctx context.Context) {
	if l == nil {
		return
	}
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	stopCtx := l.cron.Stop()
	for _, wait := range []<-chan struct{}{done, stopCtx.Done()} {
		select {
		case <-wait:
		case <-ctx.Done():
			return
		}
	}
	l.logger.Info("change listener stopped")
}

func (l *ChangeListener) run(ctx context.Context) {
	defer close(l.done)
	for {
		events, err := l.feed.Subscribe(ctx)
		if err != nil {
			l.logger.Warn("change feed subscribe failed", zap.Error(err))
		} else {
			l.consume(ctx, events)
			if ctx.Err() == nil {
				// Changes may have been missed while the feed was down.
				l.handler.Refresh(ctx)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.RetryDelay):
		}
	}
}

func (l *ChangeListener) consume(ctx context.Context, events <-chan domain.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			l.logger.Debug("change received",
				zap.String("table", string(event.Table)),
				zap.String("operation", string(event.Operation)),
				zap.String("task_id", event.TaskID))
			l.handler.HandleChange(ctx, event)
		}
	}
}
