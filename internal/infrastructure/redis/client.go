package redis

import (
	"context"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/internal/config"
)

// NewClient creates the Redis client behind the change feed and performs a
// health check.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.ClientName = "sitetasks"

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}
