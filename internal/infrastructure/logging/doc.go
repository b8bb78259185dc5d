// Package logging provides structured logging for the Postgres MCP server.
//
// It wraps the standard library's log/slog with:
//   - Configuration-driven level, format, and output selection
//   - Default service and version attributes on every record
//   - A Default() logger for early startup
//
// Because the MCP protocol owns stdout on the stdio transport, all log output
// defaults to stderr.
package logging
