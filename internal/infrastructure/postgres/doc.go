// Package postgres manages the PostgreSQL connection pool for the MCP server.
//
// It wraps jackc/pgx's pgxpool with:
//   - Configuration-driven pool sizing, idle timeout, and server-side
//     statement_timeout
//   - Leased acquisition (Lease) tolerant of double release
//   - Health checks and lifecycle management
//
// The pool's acquire/release contract is consumed by the transaction manager;
// a connection held by a tracked transaction is owned exclusively by its
// registry entry until the lease is released.
package postgres
