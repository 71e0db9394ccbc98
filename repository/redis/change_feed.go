package redis

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/repository"
)

type changeFeed struct {
	client  *redislib.Client
	channel string
	logger  *zap.Logger
}

// NewChangeFeed publishes and receives task change events over a Redis
// pub/sub channel.
func NewChangeFeed(client *redislib.Client, channel string, logger *zap.Logger) repository.ChangeFeed {
	if channel == "" {
		channel = "sitetasks:changes"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &changeFeed{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (f *changeFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if event.Table == "" || event.Operation == "" {
		return domain.ErrInvalidPayload
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

func (f *changeFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	sub := f.client.Subscribe(ctx, f.channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan domain.ChangeEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("dropping malformed change event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
