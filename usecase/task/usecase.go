// Package task owns the in-memory task graph of a client session. Mutations
// are applied locally first and confirmed against the remote data service;
// a failed remote call restores the records the mutation touched.
package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/pkg/logger"
	"github.com/fastygo/sitetasks/repository"
	"github.com/fastygo/sitetasks/usecase"
)

// Dependencies are the remote collaborators of the store.
type Dependencies struct {
	Tasks      repository.TaskRepository
	Updates    repository.TaskUpdateRepository
	ReadStatus repository.ReadStatusRepository
	Users      repository.UserRepository
	// Buffer receives advisory writes that failed. Optional.
	Buffer usecase.OperationBuffer
}

type Option func(*UseCase)

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

type UseCase struct {
	tasks   repository.TaskRepository
	updates repository.TaskUpdateRepository
	reads   repository.ReadStatusRepository
	users   repository.UserRepository
	buffer  usecase.OperationBuffer
	logger  *zap.Logger
	now     func() time.Time

	graph  *graph
	ledger *readLedger

	scopeMu sync.Mutex
	scope   fetchScope
}

func New(deps Dependencies, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:   deps.Tasks,
		updates: deps.Updates,
		reads:   deps.ReadStatus,
		users:   deps.Users,
		buffer:  deps.Buffer,
		logger:  logger,
		now:     time.Now,
		graph:   newGraph(),
		ledger:  newReadLedger(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// LastError returns the failure of the most recent list fetch, or nil.
func (uc *UseCase) LastError() error {
	return uc.graph.lastError()
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return logger.WithRequestID(ctx, uc.logger)
}

func (uc *UseCase) displayName(ctx context.Context, userID string) string {
	if uc.users == nil {
		return userID
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		uc.log(ctx).Debug("user lookup failed, using id", zap.String("user_id", userID), zap.Error(err))
		return userID
	}
	return user.Name()
}

func (uc *UseCase) timestamp() *time.Time {
	return domain.Time(uc.now())
}
