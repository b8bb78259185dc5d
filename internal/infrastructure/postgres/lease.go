package postgres

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lease is a pooled connection checked out by a single owner.
//
// Release is idempotent: the first call returns the connection to the pool,
// later calls are no-ops. Pool implementations commonly treat a double
// release as a programming error, so every code path that may race on the
// same connection goes through a Lease.
type Lease struct {
	conn     *pgxpool.Conn
	released atomic.Bool
}

// Begin starts a transaction on the leased connection.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - readOnly: When true the transaction is started with read-only access mode
//
// Returns:
//   - pgx.Tx: The started transaction
//   - error: ErrLeaseReleased if the lease was already released, or the
//     driver error from beginning the transaction
func (l *Lease) Begin(ctx context.Context, readOnly bool) (pgx.Tx, error) {
	if l.released.Load() {
		return nil, ErrLeaseReleased
	}

	opts := pgx.TxOptions{}
	if readOnly {
		opts.AccessMode = pgx.ReadOnly
	}
	return l.conn.BeginTx(ctx, opts)
}

// Release returns the connection to the pool. Safe to call more than once.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	if l.conn != nil {
		l.conn.Release()
	}
}

// Released reports whether the lease has been released.
func (l *Lease) Released() bool {
	return l.released.Load()
}
