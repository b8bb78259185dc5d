// Package mcpserver exposes the transaction manager and schema inspector as
// MCP tools over stdio.
//
// Every tool returns a JSON text payload: {"success": true, ...} on success,
// or {"success": false, "error": ..., "code": ...} on failure. Operation
// failures are reported inside the payload and never crash the server.
package mcpserver
