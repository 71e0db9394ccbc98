package usecase

import (
	"context"

	"github.com/fastygo/sitetasks/domain"
)

// OperationBuffer abstracts the retry buffer so use cases stay storage-agnostic.
// Only advisory writes are buffered; business writes roll back instead.
type OperationBuffer interface {
	BufferReadStatus(ctx context.Context, status domain.ReadStatus) error
}
