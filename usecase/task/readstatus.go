package task

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
)

// readLedger holds (user, task) read marks. Entries are only ever added or
// refreshed, never rolled back.
type readLedger struct {
	mu      sync.RWMutex
	entries map[domain.ReadKey]domain.ReadStatus
}

func newReadLedger() *readLedger {
	return &readLedger{entries: make(map[domain.ReadKey]domain.ReadStatus)}
}

func (l *readLedger) put(status domain.ReadStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[status.ID()] = status
}

func (l *readLedger) has(userID, taskID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[domain.ReadKey{UserID: userID, TaskID: taskID}]
	return ok
}

// MarkRead records that userID opened taskID. The local mark always sticks;
// the remote copy is best effort and a failed write is queued for retry.
func (uc *UseCase) MarkRead(ctx context.Context, userID, taskID string) domain.ReadStatus {
	status := domain.ReadStatus{UserID: userID, TaskID: taskID, ReadAt: uc.now()}
	uc.ledger.put(status)

	if uc.reads == nil {
		return status
	}
	if err := uc.reads.Upsert(ctx, status); err != nil {
		log := uc.log(ctx).With(zap.String("user_id", userID), zap.String("task_id", taskID))
		log.Warn("read status sync failed", zap.Error(err))
		if uc.buffer != nil {
			if bufErr := uc.buffer.BufferReadStatus(ctx, status); bufErr != nil {
				log.Warn("read status could not be buffered", zap.Error(bufErr))
			}
		}
	}
	return status
}

// IsRead reports whether userID has a read mark for taskID.
func (uc *UseCase) IsRead(userID, taskID string) bool {
	return uc.ledger.has(userID, taskID)
}

// UnreadCount counts the live tasks assigned to userID that carry no read mark.
func (uc *UseCase) UnreadCount(userID string) int {
	count := 0
	for _, t := range uc.ByUser(userID) {
		if !uc.ledger.has(userID, t.ID) {
			count++
		}
	}
	return count
}

// LoadReadStatus merges the remote read marks of userID into the ledger. A
// local mark newer than the remote one is kept.
func (uc *UseCase) LoadReadStatus(ctx context.Context, userID string) error {
	if uc.reads == nil {
		return nil
	}
	rows, err := uc.reads.ListByUser(ctx, userID)
	if err != nil {
		uc.log(ctx).Warn("load read status failed", zap.String("user_id", userID), zap.Error(err))
		return domain.RemoteError("load read status", err)
	}

	uc.ledger.mu.Lock()
	defer uc.ledger.mu.Unlock()
	for _, row := range rows {
		if local, ok := uc.ledger.entries[row.ID()]; ok && local.ReadAt.After(row.ReadAt) {
			continue
		}
		uc.ledger.entries[row.ID()] = row
	}
	return nil
}
