package mcpserver

import (
	"errors"

	"github.com/syahiidkamil/mcp-postgres-full-access/internal/schema"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/txmanager"
)

// Stable error codes surfaced to MCP clients.
const (
	codeInvalidInput        = "INVALID_INPUT"
	codeNotReadOnly         = "NOT_READ_ONLY"
	codeQueryFailed         = "QUERY_FAILED"
	codeTooManyTransactions = "TOO_MANY_TRANSACTIONS"
	codeStatementFailed     = "STATEMENT_FAILED"
	codeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	codeAlreadyReleased     = "ALREADY_RELEASED"
	codeCommitFailed        = "COMMIT_FAILED"
	codeRollbackFailed      = "ROLLBACK_FAILED"
	codeTableNotFound       = "TABLE_NOT_FOUND"
)

// errorCode maps a domain error to its client-facing code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, txmanager.ErrEmptyStatement):
		return codeInvalidInput
	case errors.Is(err, txmanager.ErrNotReadOnly):
		return codeNotReadOnly
	case errors.Is(err, txmanager.ErrTooManyTransactions):
		return codeTooManyTransactions
	case errors.Is(err, txmanager.ErrStatementFailed):
		return codeStatementFailed
	case errors.Is(err, txmanager.ErrTransactionNotFound):
		return codeTransactionNotFound
	case errors.Is(err, txmanager.ErrAlreadyReleased):
		return codeAlreadyReleased
	case errors.Is(err, txmanager.ErrCommitFailed):
		return codeCommitFailed
	case errors.Is(err, txmanager.ErrRollbackFailed):
		return codeRollbackFailed
	case errors.Is(err, schema.ErrTableNotFound):
		return codeTableNotFound
	case errors.Is(err, txmanager.ErrQueryFailed), errors.Is(err, schema.ErrQueryFailed):
		return codeQueryFailed
	default:
		return codeQueryFailed
	}
}
