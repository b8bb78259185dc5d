package postgres

import "errors"

// Domain-specific errors for pool operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrLeaseReleased is returned when attempting operations on a lease
	// whose connection has already been returned to the pool.
	ErrLeaseReleased = errors.New("postgres: lease already released")
)
