package txmanager

import (
	"context"

	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/postgres"
)

// pgxPool adapts the infrastructure pool to the manager's Pool interface.
type pgxPool struct {
	pool *postgres.Pool
}

// NewPool wraps an infrastructure postgres pool for use by the manager.
func NewPool(pool *postgres.Pool) Pool {
	return &pgxPool{pool: pool}
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	lease, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{lease: lease}, nil
}

// pgxConn adapts a postgres.Lease to the Conn interface.
type pgxConn struct {
	lease *postgres.Lease
}

func (c *pgxConn) Begin(ctx context.Context, readOnly bool) (Tx, error) {
	tx, err := c.lease.Begin(ctx, readOnly)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *pgxConn) Release() {
	c.lease.Release()
}
