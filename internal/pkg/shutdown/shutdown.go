// Package shutdown coordinates graceful teardown. Handlers run in reverse
// registration order, so the HTTP server stops accepting before the
// orchestrator drains, and the data-dir lock releases last.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"slidecast/internal/pkg/logger"
)

type handler struct {
	name    string
	cleanup func(ctx context.Context) error
}

// Manager collects named cleanup handlers and runs them on shutdown under
// one shared deadline.
type Manager struct {
	log     *logger.Logger
	timeout time.Duration

	mu       sync.Mutex
	handlers []handler

	once sync.Once
	done chan struct{}
}

// NewManager creates a manager with the given total shutdown budget.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		log:     log.WithComponent("shutdown"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a cleanup handler. Handlers run LIFO, so register in
// startup order.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler{name: name, cleanup: cleanup})
}

// RegisterSimple adds a handler that needs no context and cannot fail.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT, SIGTERM, or SIGHUP, then runs the handlers.
func (m *Manager) Wait() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigs
	m.log.Info("shutdown signal received", "signal", sig.String())
	m.Shutdown()
}

// Shutdown runs every handler in reverse registration order under the
// shared deadline. A failed handler is logged and the rest still run; a
// second call is a no-op.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		handlers := make([]handler, len(m.handlers))
		copy(handlers, m.handlers)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.log.Info("shutting down", "handlers", len(handlers), "budget", m.timeout.String())

		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			start := time.Now()
			if err := h.cleanup(ctx); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			} else {
				m.log.Debug("shutdown handler completed",
					"name", h.name,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
			if ctx.Err() != nil && i > 0 {
				m.log.Warn("shutdown budget exhausted", "remaining_handlers", i)
			}
		}

		m.log.Info("shutdown complete")
		close(m.done)
	})
}

// Done is closed once Shutdown has finished.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
