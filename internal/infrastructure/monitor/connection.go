package monitor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/internal/infrastructure/buffer"
)

// Check is a health check for one backing service.
type Check struct {
	Name    string
	Timeout time.Duration
	// Required checks decide IsOnline; optional ones are only reported.
	Required bool
	Ping     func(ctx context.Context) error
}

// PostgresCheck pings the pool.
func PostgresCheck(pool *pgxpool.Pool) Check {
	return Check{Name: "postgresql", Timeout: 3 * time.Second, Required: true, Ping: func(ctx context.Context) error {
		return pool.Ping(ctx)
	}}
}

// SQLCheck pings a database/sql handle, used for the sqlite store.
func SQLCheck(name string, db *sql.DB) Check {
	return Check{Name: name, Timeout: 2 * time.Second, Required: true, Ping: db.PingContext}
}

// RedisCheck pings Redis. The change feed is optional, so the check is too.
func RedisCheck(client *redislib.Client) Check {
	return Check{Name: "redis", Timeout: 2 * time.Second, Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

type Monitor struct {
	checks []Check
	buffer *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(checks []Check, buf *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every required check passed on the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status.LastCheck.IsZero() {
		return false
	}
	for _, p := range m.checks {
		if p.Required && !m.status.Services[p.Name] {
			return false
		}
	}
	return true
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := m.status
	status.Services = make(map[string]bool, len(m.status.Services))
	for k, v := range m.status.Services {
		status.Services[k] = v
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh() {
	services := make(map[string]bool, len(m.checks))
	for _, p := range m.checks {
		services[p.Name] = m.run(p)
	}
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		Services:   services,
		Buffer:     bufferOK,
		BufferSize: bufferSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) run(p Check) bool {
	if p.Ping == nil {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		m.logger.Debug("check failed", zap.String("service", p.Name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
