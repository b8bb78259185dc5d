// Package schema provides read-only introspection of the connected database:
// table listings and per-table structure (columns, keys, indexes).
//
// All queries run against information_schema and pg_catalog and never touch
// user data beyond approximate row counts maintained by the planner.
package schema
