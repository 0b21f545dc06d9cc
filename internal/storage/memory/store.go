package memory

import (
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces" // interface HistoryStore
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"                // domain models: HistoryEntry
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage"               // shared storage errors
)

// HistoryStore is an in-memory implementation of interfaces.HistoryStore.
// It indexes deposits and withdrawals by transaction id so that a dispute
// finds its target in O(1). Entries are never deleted.
type HistoryStore struct {
	mu      sync.RWMutex                        // protects entries; reads may run in parallel
	entries map[models.TxID]models.HistoryEntry // every referenceable transaction, keyed by id
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		entries: make(map[models.TxID]models.HistoryEntry), // initialize an empty index
	}
}

// Record inserts entry, refusing to overwrite an existing id.
// Implements the HistoryStore interface.
func (m *HistoryStore) Record(entry models.HistoryEntry) error {
	m.mu.Lock()         // lock for writing
	defer m.mu.Unlock() // unlock automatically when the function exits

	// Transaction ids are unique across all clients
	if _, exists := m.entries[entry.Tx]; exists {
		return fmt.Errorf("record tx %d: %w", entry.Tx, storage.ErrDuplicateTransactionID)
	}
	m.entries[entry.Tx] = entry
	return nil
}

// Lookup returns a copy of the entry for tx.
func (m *HistoryStore) Lookup(tx models.TxID) (models.HistoryEntry, bool) {
	m.mu.RLock()         // shared lock, lookups do not modify the index
	defer m.mu.RUnlock() // release the read lock at the end

	entry, ok := m.entries[tx]
	return entry, ok // the entry is a value, so callers cannot modify the stored one
}

// MarkDisputed flags tx as under dispute. The caller has already checked
// that the transition is allowed.
func (m *HistoryStore) MarkDisputed(tx models.TxID) error {
	return m.setDisputed(tx, true)
}

// ClearDisputed removes the dispute flag after a resolve.
func (m *HistoryStore) ClearDisputed(tx models.TxID) error {
	return m.setDisputed(tx, false)
}

func (m *HistoryStore) setDisputed(tx models.TxID, disputed bool) error {
	m.mu.Lock()         // lock for writing
	defer m.mu.Unlock() // unlock automatically when the function exits

	entry, ok := m.entries[tx]
	if !ok {
		return fmt.Errorf("tx %d: %w", tx, storage.ErrTransactionNotFound)
	}
	// Disputed is the only field that ever changes after Record
	entry.Disputed = disputed
	m.entries[tx] = entry // write the updated copy back into the map
	return nil
}

// Len returns the number of recorded entries.
func (m *HistoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Compile-time check: ensure HistoryStore implements the HistoryStore interface
var _ interfaces.HistoryStore = (*HistoryStore)(nil)
