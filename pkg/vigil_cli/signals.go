// pkg/vigil_cli/signals.go
//
// Signal handling and graceful shutdown for long-running commands.

package vigil_cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CleanupFunc is a function that performs cleanup operations
type CleanupFunc func(ctx context.Context) error

// SignalHandler cancels its context on SIGINT/SIGTERM and runs the
// registered cleanups in reverse order.
type SignalHandler struct {
	ctx          context.Context
	cancel       context.CancelFunc
	timeout      time.Duration
	mu           sync.Mutex
	cleanupFuncs []CleanupFunc
	sigChan      chan os.Signal
	done         chan struct{}
	once         sync.Once
}

// NewSignalHandler starts listening for termination signals.
func NewSignalHandler(ctx context.Context, timeout time.Duration) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)
	h := &SignalHandler{
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		sigChan: make(chan os.Signal, 2),
		done:    make(chan struct{}),
	}
	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)
	go h.handleSignals()
	return h
}

// RegisterCleanup adds a cleanup function. Cleanups run LIFO.
func (h *SignalHandler) RegisterCleanup(cleanup CleanupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFuncs = append(h.cleanupFuncs, cleanup)
}

// Context is cancelled when a signal arrives.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

func (h *SignalHandler) handleSignals() {
	logger := otelzap.Ctx(h.ctx)

	select {
	case sig := <-h.sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		h.cancel()
	case <-h.done:
		return
	}

	select {
	case sig := <-h.sigChan:
		logger.Error("Received second signal, forcing exit", zap.String("signal", sig.String()))
		fmt.Fprintln(os.Stderr, "Received second interrupt, forcing exit")
		os.Exit(1)
	case <-h.done:
	}
}

// Shutdown runs the cleanups with the configured timeout and stops
// listening for signals. It is safe to call more than once.
func (h *SignalHandler) Shutdown() error {
	var err error
	h.once.Do(func() {
		h.cancel()
		err = h.runCleanup()
		signal.Stop(h.sigChan)
		close(h.done)
	})
	return err
}

func (h *SignalHandler) runCleanup() error {
	logger := otelzap.Ctx(h.ctx)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	funcs := append([]CleanupFunc(nil), h.cleanupFuncs...)
	h.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var lastErr error
		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i](cleanupCtx); err != nil {
				logger.Warn("Cleanup function failed", zap.Int("index", i), zap.Error(err))
				lastErr = err
			}
		}
		done <- lastErr
	}()

	select {
	case err := <-done:
		return err
	case <-cleanupCtx.Done():
		logger.Error("Cleanup timed out", zap.Duration("timeout", h.timeout))
		return fmt.Errorf("cleanup timed out after %s", h.timeout)
	}
}
