package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc stops one component. It must respect the passed context.
type ShutdownFunc func(ctx context.Context) error

type entry struct {
	name string
	stop ShutdownFunc
}

// Manager runs registered shutdown callbacks in reverse registration order
// when the process receives a termination signal, so dependents stop before
// the resources they hold.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	entries []entry
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

// Register appends a shutdown callback. Later registrations stop first.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, stop: fn})
}

// Shutdown stops every registered component within the configured timeout.
// A failing callback does not stop the remaining ones; all failures are
// joined into the returned error.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if err := e.stop(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", e.name), zap.Error(err))
			errs = errors.Join(errs, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", e.name))
	}
	return errs
}

// Listen watches for SIGTERM/SIGINT in the background and invokes cancel on
// the first one.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		sig := <-sigCh
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()
}
