package txmanager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Logger defines the logging interface used by the transaction manager.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Tx is the transaction surface the manager drives. pgx.Tx satisfies it.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a leased pooled connection. Release must be safe to call more
// than once; the pool adapter guarantees this.
type Conn interface {
	Begin(ctx context.Context, readOnly bool) (Tx, error)
	Release()
}

// Pool acquires leased connections for the manager.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// State is the lifecycle state of a tracked transaction.
// The only transition is StateActive -> StateTerminating; it never reverses.
type State string

const (
	// StateActive marks a transaction awaiting explicit resolution.
	StateActive State = "active"

	// StateTerminating marks a transaction the monitor has begun rolling
	// back. It prevents a second forced rollback of the same entry.
	StateTerminating State = "terminating"
)

// sqlPreviewLen is the maximum length of the stored statement preview.
const sqlPreviewLen = 100

// TrackedTransaction is one outstanding write transaction: a held connection,
// its open transaction, and the lifecycle guards that make finalisation
// idempotent.
//
// The connection is owned exclusively by this entry from registration until
// release; no other component may use it concurrently.
type TrackedTransaction struct {
	id         string
	conn       Conn
	tx         Tx
	startedAt  time.Time
	sqlPreview string

	mu       sync.Mutex
	state    State
	released bool
}

func newTrackedTransaction(id string, conn Conn, tx Tx, sql string) *TrackedTransaction {
	return &TrackedTransaction{
		id:         id,
		conn:       conn,
		tx:         tx,
		startedAt:  time.Now(),
		sqlPreview: previewSQL(sql),
		state:      StateActive,
	}
}

// ID returns the transaction's opaque identifier.
func (t *TrackedTransaction) ID() string { return t.id }

// StartedAt returns the registration timestamp.
func (t *TrackedTransaction) StartedAt() time.Time { return t.startedAt }

// SQLPreview returns the truncated originating statement, for diagnostics.
func (t *TrackedTransaction) SQLPreview() string { return t.sqlPreview }

// Age returns how long the transaction has been held open.
func (t *TrackedTransaction) Age() time.Duration { return time.Since(t.startedAt) }

// State returns the current lifecycle state.
func (t *TrackedTransaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Released reports whether the entry's connection has been released
// (or a release has been claimed by a finalisation path).
func (t *TrackedTransaction) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// tryRelease claims the right to finalise the transaction. Exactly one
// caller observes true; every other path must treat the entry as gone.
func (t *TrackedTransaction) tryRelease() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return false
	}
	t.released = true
	return true
}

// markTerminating transitions the entry from active to terminating. Returns
// false when the entry is already terminating or released, so the monitor
// never starts a second forced rollback for the same entry.
func (t *TrackedTransaction) markTerminating() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released || t.state != StateActive {
		return false
	}
	t.state = StateTerminating
	return true
}

// previewSQL truncates a statement for diagnostics.
func previewSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	if len(sql) <= sqlPreviewLen {
		return sql
	}
	return sql[:sqlPreviewLen] + "..."
}

// newTransactionID generates a globally unique transaction identifier:
// a millisecond timestamp plus a random suffix.
func newTransactionID() string {
	return fmt.Sprintf("tx_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
