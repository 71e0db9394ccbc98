package repository

import (
	"context"

	"github.com/fastygo/sitetasks/domain"
)

// ChangeFeed delivers remote change notifications. The channel is closed when
// ctx is done or the underlying subscription ends.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
	Publish(ctx context.Context, event domain.ChangeEvent) error
}
