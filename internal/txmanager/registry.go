package txmanager

import (
	"fmt"
	"sync"
)

// Registry maps transaction identifiers to their tracked entries. It is the
// single source of truth for which connections are held open by the process.
//
// The registry itself does not serialise operations on the same identifier;
// correctness under interleaving depends on each entry's released/state
// guards, which make every finalisation path idempotent.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*TrackedTransaction
	logger  Logger
}

// NewRegistry creates an empty transaction registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*TrackedTransaction),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Add registers a tracked transaction. The entry's connection is owned by
// the registry from this point until a finalisation path releases it.
// Returns ErrDuplicateTransaction if the id is already registered.
func (r *Registry) Add(entry *TrackedTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, entry.id)
	}
	r.entries[entry.id] = entry

	r.logger.Debug("transaction registered", "transaction_id", entry.id, "open", len(r.entries))
	return nil
}

// Get retrieves a tracked transaction by id.
func (r *Registry) Get(id string) (*TrackedTransaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Remove deletes an entry. Removing an unknown id is a no-op, which keeps
// racing finalisation paths simple.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Count returns the number of outstanding transactions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns the current entries. The slice is a copy; the entries are
// shared, so callers interact with them only through their guarded methods.
func (r *Registry) Snapshot() []*TrackedTransaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*TrackedTransaction, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}
