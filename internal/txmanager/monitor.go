package txmanager

import (
	"context"
	"sync"
	"time"
)

// forcedRollbackTimeout bounds a single forced rollback so one stuck
// connection cannot hold a sweep goroutine forever.
const forcedRollbackTimeout = 5 * time.Second

// Monitor periodically sweeps the registry and force-rolls-back transactions
// older than the configured timeout.
//
// Each forced rollback runs in its own goroutine so a slow rollback never
// delays detection of other overdue entries. The goroutines are tracked and
// collected by Stop, so shutdown never leaves a fire-and-forget rollback
// behind.
type Monitor struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration
	logger   Logger

	cancel context.CancelFunc
	done   chan struct{}
	forced sync.WaitGroup
}

// NewMonitor creates a monitor sweeping at the given interval for entries
// older than timeout.
func NewMonitor(registry *Registry, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		timeout:  timeout,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the monitor.
func (mon *Monitor) SetLogger(logger Logger) {
	mon.logger = logger
}

// Start launches the sweep loop. It runs until the context is cancelled or
// Stop is called.
func (mon *Monitor) Start(ctx context.Context) {
	ctx, mon.cancel = context.WithCancel(ctx)
	mon.done = make(chan struct{})

	mon.logger.Info("transaction monitor started",
		"interval", mon.interval.String(),
		"timeout", mon.timeout.String(),
	)

	go mon.run(ctx)
}

// Stop halts the sweep loop and waits for in-flight forced rollbacks to
// finish. Safe to call when the monitor was never started.
func (mon *Monitor) Stop() {
	if mon.cancel == nil {
		return
	}
	mon.cancel()
	<-mon.done
	mon.forced.Wait()
	mon.logger.Info("transaction monitor stopped")
}

func (mon *Monitor) run(ctx context.Context) {
	defer close(mon.done)

	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mon.sweep(ctx)
		}
	}
}

// sweep scans the registry once, transitioning every overdue active entry to
// terminating and launching its forced rollback.
func (mon *Monitor) sweep(ctx context.Context) {
	for _, entry := range mon.registry.Snapshot() {
		if entry.Released() {
			continue
		}
		if entry.Age() <= mon.timeout {
			continue
		}
		if !entry.markTerminating() {
			// Already being terminated, or a racing finaliser got here first.
			continue
		}

		mon.forced.Add(1)
		go mon.forceRollback(ctx, entry)
	}
}

// forceRollback resolves one overdue entry. The released guard decides the
// winner against a racing explicit commit/rollback: whichever path claims
// the release performs it, the other backs off.
func (mon *Monitor) forceRollback(ctx context.Context, entry *TrackedTransaction) {
	defer mon.forced.Done()

	if !entry.tryRelease() {
		return
	}

	mon.logger.Warn("transaction timed out, forcing rollback",
		"transaction_id", entry.ID(),
		"age", entry.Age().String(),
		"sql", entry.SQLPreview(),
	)

	// The rollback must survive shutdown cancellation of the sweep context,
	// but not run unbounded on a stuck connection.
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forcedRollbackTimeout)
	defer cancel()

	if err := entry.tx.Rollback(rbCtx); err != nil {
		mon.logger.Error("forced rollback failed",
			"transaction_id", entry.ID(), "error", err)
	}

	entry.conn.Release()
	mon.registry.Remove(entry.ID())
}
