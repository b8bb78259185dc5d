// Package api provides the optional admin HTTP server.
//
// It exposes read-only operational visibility into the connection pool and
// the held-transaction registry. It is disabled by default and carries no
// mutation endpoints.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
