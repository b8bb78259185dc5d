package txmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Config contains the manager's operating limits.
type Config struct {
	// TransactionTimeout is reported to write callers so they know the
	// deadline the monitor will enforce.
	TransactionTimeout time.Duration

	// MaxConcurrent is the ceiling on simultaneously held transactions.
	// The check is a plain counter comparison, not a semaphore: a request
	// over the ceiling fails immediately rather than queueing.
	MaxConcurrent int
}

// Manager implements the request-level operations that drive the registry:
// read queries, write-and-hold execution, explicit commit/rollback, and the
// shutdown drain.
type Manager struct {
	pool     Pool
	registry *Registry
	cfg      Config
	logger   Logger
}

// NewManager creates a transaction manager over the given pool and registry.
func NewManager(pool Pool, registry *Registry, cfg Config) *Manager {
	return &Manager{
		pool:     pool,
		registry: registry,
		cfg:      cfg,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Registry returns the manager's registry, for observability surfaces.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Field describes one column of a query result.
type Field struct {
	Name        string `json:"name"`
	DataTypeOID uint32 `json:"dataTypeOid"`
}

// QueryResult is the outcome of a read-only query.
type QueryResult struct {
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"rowCount"`
	Fields    []Field          `json:"fields"`
	ElapsedMS int64            `json:"durationMs"`
}

// ExecuteResult is the outcome of a write statement executed inside a
// held-open transaction.
type ExecuteResult struct {
	TransactionID string `json:"transactionId"`
	Command       string `json:"command"`
	RowCount      int64  `json:"rowCount"`
	ElapsedMS     int64  `json:"durationMs"`
	TimeoutMS     int64  `json:"timeoutMs"`
}

// ReadQuery executes a read-only statement in an isolated read-only
// transaction and releases the connection on every exit path.
//
// The statement must pass the read-only classifier; otherwise ErrNotReadOnly
// is returned before any connection is acquired. Execution errors surface as
// ErrQueryFailed.
func (m *Manager) ReadQuery(ctx context.Context, sql string) (*QueryResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyStatement
	}
	if !IsReadOnly(sql) {
		return nil, fmt.Errorf("%w: use the write operation for %s", ErrNotReadOnly, firstWord(sql))
	}

	start := time.Now()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		m.rollbackQuiet(ctx, tx, "failed read query")
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	result, err := collectRows(rows)
	if err != nil {
		m.rollbackQuiet(ctx, tx, "failed row collection")
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	// Committing a read-only transaction changes no data; it just closes
	// the transaction cleanly.
	if err := tx.Commit(ctx); err != nil {
		m.rollbackQuiet(ctx, tx, "failed read commit")
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	result.ElapsedMS = time.Since(start).Milliseconds()
	m.logger.Debug("read query complete", "rows", result.RowCount, "duration_ms", result.ElapsedMS)
	return result, nil
}

// Execute runs a write/DDL statement inside a transaction that is kept open
// and registered under a fresh transaction id. The caller must resolve it
// with Commit or Rollback before the configured timeout, or the monitor
// force-rolls it back.
//
// This is the only operation that leaves a connection checked out across the
// boundary of a single request, so a human or downstream agent can inspect
// effects before committing.
func (m *Manager) Execute(ctx context.Context, sql string) (*ExecuteResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyStatement
	}

	// Ceiling check before any connection is acquired: zero resource cost.
	if count := m.registry.Count(); count >= m.cfg.MaxConcurrent {
		return nil, fmt.Errorf("%w: %d open, limit %d", ErrTooManyTransactions, count, m.cfg.MaxConcurrent)
	}

	start := time.Now()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatementFailed, err)
	}

	tx, err := conn.Begin(ctx, false)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: %v", ErrStatementFailed, err)
	}

	tag, err := tx.Exec(ctx, sql)
	if err != nil {
		m.rollbackQuiet(ctx, tx, "failed write statement")
		conn.Release()
		return nil, fmt.Errorf("%w: %v (sql: %s)", ErrStatementFailed, err, previewSQL(sql))
	}

	entry := newTrackedTransaction(newTransactionID(), conn, tx, sql)
	if err := m.registry.Add(entry); err != nil {
		m.rollbackQuiet(ctx, tx, "failed registration")
		conn.Release()
		return nil, fmt.Errorf("%w: %v", ErrStatementFailed, err)
	}

	command := commandWord(tag)
	m.logger.Info("transaction held open",
		"transaction_id", entry.ID(),
		"command", command,
		"rows", tag.RowsAffected(),
		"timeout_ms", m.cfg.TransactionTimeout.Milliseconds(),
	)

	return &ExecuteResult{
		TransactionID: entry.ID(),
		Command:       command,
		RowCount:      tag.RowsAffected(),
		ElapsedMS:     time.Since(start).Milliseconds(),
		TimeoutMS:     m.cfg.TransactionTimeout.Milliseconds(),
	}, nil
}

// Commit finalises a held transaction with COMMIT.
//
// A second commit after success returns ErrTransactionNotFound (the entry no
// longer exists). If the entry was already released by a racing path, the
// stale entry is removed and ErrAlreadyReleased returned. On commit failure
// a best-effort rollback runs before the connection is released, and
// ErrCommitFailed is returned.
func (m *Manager) Commit(ctx context.Context, id string) error {
	entry, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	if !entry.tryRelease() {
		// Self-healing cleanup: drop the stale entry instead of erroring
		// on it indefinitely.
		m.registry.Remove(id)
		return fmt.Errorf("%w: %s", ErrAlreadyReleased, id)
	}

	commitErr := entry.tx.Commit(ctx)
	if commitErr != nil {
		// Best effort: do not hand a connection with an open transaction
		// back to the pool.
		if rbErr := entry.tx.Rollback(ctx); rbErr != nil {
			m.logger.Warn("fallback rollback after failed commit failed",
				"transaction_id", id, "error", rbErr)
		}
	}

	entry.conn.Release()
	m.registry.Remove(id)

	if commitErr != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, commitErr)
	}

	m.logger.Info("transaction committed", "transaction_id", id, "held_for", entry.Age().String())
	return nil
}

// Rollback finalises a held transaction with ROLLBACK. Same not-found and
// already-released behaviour as Commit; a failed rollback still releases the
// connection and removes the entry, returning ErrRollbackFailed.
func (m *Manager) Rollback(ctx context.Context, id string) error {
	entry, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	if !entry.tryRelease() {
		m.registry.Remove(id)
		return fmt.Errorf("%w: %s", ErrAlreadyReleased, id)
	}

	rbErr := entry.tx.Rollback(ctx)

	entry.conn.Release()
	m.registry.Remove(id)

	if rbErr != nil {
		return fmt.Errorf("%w: %v", ErrRollbackFailed, rbErr)
	}

	m.logger.Info("transaction rolled back", "transaction_id", id, "held_for", entry.Age().String())
	return nil
}

// DrainAll rolls back every non-released entry and clears the registry.
// Invoked on shutdown so no connection stays held by the process; individual
// rollback failures are logged and the drain continues.
func (m *Manager) DrainAll(ctx context.Context) {
	entries := m.registry.Snapshot()
	if len(entries) == 0 {
		return
	}
	m.logger.Info("draining open transactions", "count", len(entries))

	for _, entry := range entries {
		if !entry.tryRelease() {
			m.registry.Remove(entry.ID())
			continue
		}
		if err := entry.tx.Rollback(ctx); err != nil {
			m.logger.Error("rollback during drain failed",
				"transaction_id", entry.ID(), "error", err)
		}
		entry.conn.Release()
		m.registry.Remove(entry.ID())
	}
}

// rollbackQuiet rolls back a transaction that is not registered, logging
// instead of propagating the error.
func (m *Manager) rollbackQuiet(ctx context.Context, tx Tx, reason string) {
	if err := tx.Rollback(ctx); err != nil {
		m.logger.Debug("rollback failed", "reason", reason, "error", err)
	}
}

// collectRows drains a pgx result set into a QueryResult.
func collectRows(rows pgx.Rows) (*QueryResult, error) {
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]Field, len(descs))
	for i, d := range descs {
		fields[i] = Field{Name: d.Name, DataTypeOID: d.DataTypeOID}
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i := range fields {
			if i < len(values) {
				row[fields[i].Name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Rows: out, RowCount: len(out), Fields: fields}, nil
}

// commandWord extracts the leading command from a pgconn tag ("INSERT 0 1"
// -> "INSERT").
func commandWord(tag pgconn.CommandTag) string {
	return firstWord(tag.String())
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return strings.ToUpper(f[0])
	}
	return ""
}
