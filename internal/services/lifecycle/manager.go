package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Stage orders shutdown. Every component of a stage stops before the next
// stage begins; components within a stage stop concurrently.
type Stage int

const (
	// StageIngress stops new work: the HTTP server and the change listener.
	StageIngress Stage = iota
	// StageWorkers stops background jobs that still need the stores.
	StageWorkers
	// StageStorage closes stores and connections.
	StageStorage
)

func (s Stage) String() string {
	switch s {
	case StageIngress:
		return "ingress"
	case StageWorkers:
		return "workers"
	case StageStorage:
		return "storage"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StopFunc stops one component within the shutdown deadline.
type StopFunc func(ctx context.Context) error

type component struct {
	stage Stage
	name  string
	stop  StopFunc
}

// Manager stops the service's components in stages when the process is asked
// to terminate.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	components []component
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{timeout: timeout, logger: logger}
}

func (m *Manager) Register(stage Stage, name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{stage: stage, name: name, stop: stop})
}

// WithSignals returns a context that is cancelled on SIGINT or SIGTERM.
func (m *Manager) WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			m.logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))
		}
	}()
	return ctx, stop
}

// Shutdown runs every stage in order under one deadline and reports all
// failures. Components are stopped at most once.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	components := m.components
	m.components = nil
	m.mu.Unlock()

	started := time.Now()
	var errs []error
	for _, stage := range []Stage{StageIngress, StageWorkers, StageStorage} {
		errs = append(errs, m.stopStage(ctx, stage, components)...)
	}
	m.logger.Info("shutdown finished", zap.Duration("took", time.Since(started)), zap.Int("failures", len(errs)))
	return errors.Join(errs...)
}

func (m *Manager) stopStage(ctx context.Context, stage Stage, components []component) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range components {
		if c.stage != stage {
			continue
		}
		wg.Add(1)
		go func(c component) {
			defer wg.Done()
			started := time.Now()
			log := m.logger.With(zap.Stringer("stage", stage), zap.String("component", c.name))
			if err := c.stop(ctx); err != nil {
				log.Error("component stop failed", zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				mu.Unlock()
				return
			}
			log.Info("component stopped", zap.Duration("took", time.Since(started)))
		}(c)
	}
	wg.Wait()
	return errs
}

// Components lists registered names in the order they will be stopped.
func (m *Manager) Components() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, stage := range []Stage{StageIngress, StageWorkers, StageStorage} {
		for _, c := range m.components {
			if c.stage == stage {
				names = append(names, c.name)
			}
		}
	}
	return names
}
