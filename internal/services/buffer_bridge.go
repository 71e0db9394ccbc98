package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/internal/infrastructure/buffer"
	"github.com/fastygo/sitetasks/usecase"
)

// BufferBridge turns failed advisory writes into buffer items.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

// BufferReadStatus keeps the latest read mark per user and task until the
// data service accepts it.
func (b *BufferBridge) BufferReadStatus(ctx context.Context, status domain.ReadStatus) error {
	if b.processor == nil || status.UserID == "" || status.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return b.processor.BufferOperation(ctx, buffer.Item{
		Key:       status.Key(),
		Entity:    buffer.EntityReadStatus,
		Operation: buffer.OperationUpsert,
		Data:      payload,
		Timestamp: status.ReadAt,
	})
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
