package txmanager

import "errors"

// Domain errors for the transaction manager.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, txmanager.ErrTransactionNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEmptyStatement is returned when a SQL string is missing or blank.
	ErrEmptyStatement = errors.New("txmanager: empty sql statement")

	// ErrNotReadOnly is returned when a statement sent to the read path is
	// not classified as read-only.
	ErrNotReadOnly = errors.New("txmanager: statement is not read-only")

	// ErrQueryFailed is returned when a read-only query fails to execute.
	ErrQueryFailed = errors.New("txmanager: query failed")

	// ErrTooManyTransactions is returned when the concurrent transaction
	// ceiling would be exceeded. No connection is acquired in this case.
	ErrTooManyTransactions = errors.New("txmanager: too many concurrent transactions")

	// ErrStatementFailed is returned when a write statement fails to execute.
	ErrStatementFailed = errors.New("txmanager: statement failed")

	// ErrTransactionNotFound is returned when a transaction id is not in the
	// registry, including ids already resolved by commit, rollback, or the
	// monitor.
	ErrTransactionNotFound = errors.New("txmanager: transaction not found")

	// ErrAlreadyReleased is returned when a commit or rollback races a
	// finalisation that already released the entry's connection.
	ErrAlreadyReleased = errors.New("txmanager: transaction already released")

	// ErrCommitFailed is returned when the database rejects a commit. The
	// connection is still released and the entry removed.
	ErrCommitFailed = errors.New("txmanager: commit failed")

	// ErrRollbackFailed is returned when the database rejects a rollback.
	// The connection is still released and the entry removed.
	ErrRollbackFailed = errors.New("txmanager: rollback failed")

	// ErrDuplicateTransaction is returned when registering an id that is
	// already present in the registry.
	ErrDuplicateTransaction = errors.New("txmanager: duplicate transaction id")
)
