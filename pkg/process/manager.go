// Package process handles signal-driven shutdown for long-running commands
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/webvy/webvy/pkg/logger"
)

// Manager turns SIGINT, SIGTERM and SIGHUP into context cancellation and
// runs shutdown handlers once.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	signals          []os.Signal
	cancel           context.CancelFunc
	done             chan struct{}
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		logger:  log,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP},
		done:    make(chan struct{}),
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run in
// reverse registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start begins listening for signals. The returned context is cancelled
// when a signal arrives, when ctx ends or when Stop is called; shutdown
// handlers have run by the time Done is closed.
func (m *Manager) Start(ctx context.Context) context.Context {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ctx
	}
	m.running = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, m.signals...)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case <-runCtx.Done():
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
		}
		cancel()
		m.handleShutdown()
	}()

	return runCtx
}

// Stop cancels the manager's context and waits for shutdown handlers.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Done is closed once shutdown handlers have run.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.logger.Info("Initiating graceful shutdown...")

	m.mu.Lock()
	handlers := append([]func(){}, m.shutdownHandlers...)
	m.running = false
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
	close(m.done)
}
