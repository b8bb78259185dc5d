// Package txmanager implements the transaction lifecycle manager: the
// subsystem that tracks externally-initiated database transactions spanning
// multiple independent requests.
//
// A write statement is executed inside a transaction that stays open after
// the request returns; the caller receives an opaque transaction id and must
// resolve it with a later commit or rollback request. The Registry owns the
// leased connection of every open transaction, and the Monitor force-rolls-
// back anything that overstays the configured wall-clock timeout.
//
// Every finalisation path (explicit commit, explicit rollback, monitor
// timeout, shutdown drain) races through the same compare-and-set guard on
// the entry's released flag, so each transaction resolves exactly once and
// its connection is returned to the pool exactly once.
//
// Thread Safety: all exported types are safe for concurrent use.
package txmanager
