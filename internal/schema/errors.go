package schema

import "errors"

var (
	// ErrTableNotFound indicates the relation does not exist in the
	// requested schema.
	ErrTableNotFound = errors.New("schema: table not found")

	// ErrQueryFailed indicates a catalog query could not be executed.
	ErrQueryFailed = errors.New("schema: introspection query failed")
)
