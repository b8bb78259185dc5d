package txmanager

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockTx is a test implementation of Tx.
type mockTx struct {
	mu          sync.Mutex
	execTag     pgconn.CommandTag
	execErr     error
	queryRows   *fakeRows
	queryErr    error
	commitErr   error
	rollbackErr error

	execs     int
	commits   int
	rollbacks int
}

func (t *mockTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.execs++
	if t.execErr != nil {
		return pgconn.CommandTag{}, t.execErr
	}
	return t.execTag, nil
}

func (t *mockTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.queryErr != nil {
		return nil, t.queryErr
	}
	return t.queryRows, nil
}

func (t *mockTx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commits++
	return t.commitErr
}

func (t *mockTx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbacks++
	return t.rollbackErr
}

func (t *mockTx) commitCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

func (t *mockTx) rollbackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbacks
}

// mockConn is a test implementation of Conn.
type mockConn struct {
	mu       sync.Mutex
	tx       *mockTx
	beginErr error

	begins   int
	readOnly bool // access mode of the last Begin
	releases int
}

func (c *mockConn) Begin(_ context.Context, readOnly bool) (Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begins++
	c.readOnly = readOnly
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return c.tx, nil
}

func (c *mockConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
}

func (c *mockConn) releaseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// mockPool hands out mockConns in order. When the queue is empty it creates
// a default conn whose tx reports INSERT 0 1.
type mockPool struct {
	mu         sync.Mutex
	queue      []*mockConn
	acquireErr error

	acquired int
	conns    []*mockConn // every conn handed out, in order
}

func newMockPool(conns ...*mockConn) *mockPool {
	return &mockPool{queue: conns}
}

func defaultConn() *mockConn {
	return &mockConn{tx: &mockTx{execTag: pgconn.NewCommandTag("INSERT 0 1")}}
}

func (p *mockPool) Acquire(_ context.Context) (Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	var conn *mockConn
	if len(p.queue) > 0 {
		conn = p.queue[0]
		p.queue = p.queue[1:]
	} else {
		conn = defaultConn()
	}
	p.acquired++
	p.conns = append(p.conns, conn)
	return conn, nil
}

func (p *mockPool) acquireCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

func (p *mockPool) conn(i int) *mockConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[i]
}

// fakeRows is a minimal pgx.Rows implementation for read-path tests.
type fakeRows struct {
	fields []pgconn.FieldDescription
	rows   [][]any
	idx    int
	rowErr error // surfaced by Err() after iteration
	closed bool
}

func (f *fakeRows) Close()                                       { f.closed = true }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return f.fields }

func (f *fakeRows) Next() bool {
	if f.idx < len(f.rows) {
		f.idx++
		return true
	}
	return false
}

func (f *fakeRows) Scan(_ ...any) error       { return nil }
func (f *fakeRows) Values() ([]any, error)    { return f.rows[f.idx-1], nil }
func (f *fakeRows) RawValues() [][]byte       { return nil }
func (f *fakeRows) Conn() *pgx.Conn           { return nil }

// selectRows builds fakeRows with the given column names and row values.
func selectRows(columns []string, rows ...[]any) *fakeRows {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, name := range columns {
		fields[i] = pgconn.FieldDescription{Name: name, DataTypeOID: 25} // text
	}
	return &fakeRows{fields: fields, rows: rows}
}
