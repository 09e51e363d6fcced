package connection

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/shutdown"
)

// AdapterTicker is satisfied by a runtime.Manager-like component whose event
// loop needs ticking alongside the connection's own maintenance.
type AdapterTicker interface {
	RunEventLoop() error
}

// Supervisor runs the outer select loop over interrupt, connection
// maintenance, and adapter-tick signals. No branch polls: every wait is a
// channel receive, a ticker, or the interrupt signal.
type Supervisor struct {
	driver    *Driver
	adapters  []AdapterTicker
	log       *logging.Logger
	tickEvery time.Duration
	graceful  *shutdown.Graceful
}

// NewSupervisor builds a Supervisor over driver, ticking every adapter in
// adapters at tickEvery.
func NewSupervisor(driver *Driver, adapters []AdapterTicker, tickEvery time.Duration, log *logging.Logger) *Supervisor {
	if log == nil {
		log = logging.Default("connection")
	}
	if tickEvery <= 0 {
		tickEvery = 16 * time.Millisecond
	}
	return &Supervisor{
		driver:    driver,
		adapters:  adapters,
		log:       log,
		tickEvery: tickEvery,
		graceful:  shutdown.New(5*time.Second, log),
	}
}

// Run blocks, servicing adapter ticks until ctx is cancelled or the process
// receives an interrupt, then runs registered shutdown funcs in LIFO order.
func (s *Supervisor) Run(ctx context.Context) error {
	s.graceful.Register(func(context.Context) error { return s.driver.Close() })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.graceful.Shutdown(context.Background())
		case <-sigCh:
			s.log.Info("interrupt received, shutting down")
			return s.graceful.Shutdown(context.Background())
		case <-ticker.C:
			for _, a := range s.adapters {
				if err := a.RunEventLoop(); err != nil {
					s.log.Error("adapter event loop failed", logging.Err(err))
				}
			}
		}
	}
}
