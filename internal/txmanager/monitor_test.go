package txmanager

import (
	"context"
	"testing"
	"time"
)

// backdate makes an entry look older than it is so sweeps can be driven
// deterministically without sleeping past real timeouts.
func backdate(entry *TrackedTransaction, by time.Duration) {
	entry.startedAt = time.Now().Add(-by)
}

func TestMonitor_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back overdue entries exactly once", func(t *testing.T) {
		conn := defaultConn()
		pool := newMockPool(conn)
		m, registry := testManager(pool)
		mon := NewMonitor(registry, time.Hour, time.Second)

		result, err := m.Execute(ctx, "INSERT INTO t VALUES (1)")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		entry, _ := registry.Get(result.TransactionID)
		backdate(entry, time.Minute)

		mon.sweep(ctx)
		mon.sweep(ctx) // second sweep must not double-fire
		mon.forced.Wait()

		if got := conn.tx.rollbackCount(); got != 1 {
			t.Errorf("rollbacks = %d, want 1", got)
		}
		if got := conn.releaseCount(); got != 1 {
			t.Errorf("releases = %d, want 1", got)
		}
		if registry.Count() != 0 {
			t.Errorf("registry Count() = %d, want 0", registry.Count())
		}
	})

	t.Run("leaves entries within the timeout alone", func(t *testing.T) {
		conn := defaultConn()
		pool := newMockPool(conn)
		m, registry := testManager(pool)
		mon := NewMonitor(registry, time.Hour, time.Minute)

		if _, err := m.Execute(ctx, "INSERT INTO t VALUES (1)"); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		mon.sweep(ctx)
		mon.forced.Wait()

		if got := conn.tx.rollbackCount(); got != 0 {
			t.Errorf("rollbacks = %d, want 0", got)
		}
		if registry.Count() != 1 {
			t.Errorf("registry Count() = %d, want 1", registry.Count())
		}
	})

	t.Run("skips entries a finaliser already released", func(t *testing.T) {
		conn := defaultConn()
		pool := newMockPool(conn)
		m, registry := testManager(pool)
		mon := NewMonitor(registry, time.Hour, time.Second)

		result, err := m.Execute(ctx, "INSERT INTO t VALUES (1)")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		entry, _ := registry.Get(result.TransactionID)
		backdate(entry, time.Minute)

		if err := m.Commit(ctx, result.TransactionID); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		mon.sweep(ctx)
		mon.forced.Wait()

		if got := conn.tx.commitCount(); got != 1 {
			t.Errorf("commits = %d, want 1", got)
		}
		if got := conn.tx.rollbackCount(); got != 0 {
			t.Errorf("rollbacks = %d, want 0 (forced rollback after commit)", got)
		}
		if got := conn.releaseCount(); got != 1 {
			t.Errorf("releases = %d, want 1", got)
		}
	})

	t.Run("racing finaliser beats the forced rollback", func(t *testing.T) {
		conn := defaultConn()
		pool := newMockPool(conn)
		m, registry := testManager(pool)
		mon := NewMonitor(registry, time.Hour, time.Second)

		result, err := m.Execute(ctx, "INSERT INTO t VALUES (1)")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		entry, _ := registry.Get(result.TransactionID)
		backdate(entry, time.Minute)

		// The sweep marks the entry terminating before the explicit commit
		// arrives; the commit then wins the release.
		for _, e := range registry.Snapshot() {
			if !e.markTerminating() {
				t.Fatal("markTerminating() = false on active entry")
			}
		}
		if err := m.Commit(ctx, result.TransactionID); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		mon.forced.Add(1)
		mon.forceRollback(ctx, entry)
		mon.forced.Wait()

		if got := conn.tx.rollbackCount(); got != 0 {
			t.Errorf("rollbacks = %d, want 0", got)
		}
		if got := conn.releaseCount(); got != 1 {
			t.Errorf("releases = %d, want 1", got)
		}
	})
}

func TestMonitor_StartStop(t *testing.T) {
	ctx := context.Background()

	t.Run("running monitor clears an overdue transaction", func(t *testing.T) {
		conn := defaultConn()
		pool := newMockPool(conn)
		m, registry := testManager(pool)

		result, err := m.Execute(ctx, "INSERT INTO t VALUES (1)")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		entry, _ := registry.Get(result.TransactionID)
		backdate(entry, time.Minute)

		mon := NewMonitor(registry, 10*time.Millisecond, 30*time.Millisecond)
		mon.Start(ctx)
		defer mon.Stop()

		deadline := time.After(2 * time.Second)
		for registry.Count() > 0 {
			select {
			case <-deadline:
				t.Fatal("monitor did not clear the overdue transaction in time")
			case <-time.After(5 * time.Millisecond):
			}
		}

		if got := conn.tx.rollbackCount(); got != 1 {
			t.Errorf("rollbacks = %d, want 1", got)
		}
		if got := conn.releaseCount(); got != 1 {
			t.Errorf("releases = %d, want 1", got)
		}
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		mon := NewMonitor(NewRegistry(), time.Second, time.Second)
		mon.Stop()
	})

	t.Run("stop after start returns", func(t *testing.T) {
		mon := NewMonitor(NewRegistry(), time.Hour, time.Hour)
		mon.Start(ctx)
		done := make(chan struct{})
		go func() {
			mon.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop() did not return")
		}
	})
}
