// Package shutdown coordinates orderly teardown of the host's long-lived
// components (Connection Driver, Graphic Proxy render thread, Resource
// Proxy queue processor, Runtime Manager adapters), adapted from the
// teacher's kernel/utils/graceful.go LIFO shutdown-function registry.
package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/staminalerr"
)

// Graceful runs registered teardown functions in LIFO order, bounded by a
// timeout, so the last component to start is the first asked to stop.
type Graceful struct {
	mu      sync.Mutex
	fns     []func(context.Context) error
	timeout time.Duration
	log     *logging.Logger
}

// New builds a Graceful shutdown coordinator.
func New(timeout time.Duration, log *logging.Logger) *Graceful {
	if log == nil {
		log = logging.Default("shutdown")
	}
	return &Graceful{timeout: timeout, log: log}
}

// Register adds a teardown function. Shutdown starts it after every function
// registered later has been started; the functions then run concurrently,
// so it does not wait for those to finish.
func (g *Graceful) Register(fn func(context.Context) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fns = append(g.fns, fn)
}

// Shutdown executes every registered function in reverse registration order,
// concurrently, waiting for all of them or the configured timeout.
func (g *Graceful) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	fns := append([]func(context.Context) error{}, g.fns...)
	g.mu.Unlock()

	g.log.Info("starting graceful shutdown", logging.Int("components", len(fns)))

	shutdownCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(fns))

	for i := len(fns) - 1; i >= 0; i-- {
		wg.Add(1)
		fn := fns[i]
		go func(idx int, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(shutdownCtx); err != nil {
				g.log.Error("shutdown function failed", logging.Int("index", idx), logging.Err(err))
				errCh <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.log.Info("graceful shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		g.log.Warn("graceful shutdown timed out")
		return staminalerr.New(staminalerr.ConfigError, "shutdown timeout")
	}
}
