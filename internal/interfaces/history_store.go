package interfaces

import (
	"context"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

// HistoryStore indexes deposits and withdrawals by transaction id.
// It performs no authorization: callers validate a transition before
// flipping the dispute flag.
type HistoryStore interface {
	// Record fails with storage.ErrDuplicateTransactionID if the id is taken.
	Record(entry models.HistoryEntry) error
	Lookup(tx models.TxID) (models.HistoryEntry, bool)
	// MarkDisputed and ClearDisputed fail with storage.ErrTransactionNotFound
	// for an unknown id.
	MarkDisputed(tx models.TxID) error
	ClearDisputed(tx models.TxID) error
	Len() int
}

// SnapshotWriter consumes the final account states of a run.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, accounts []models.Account) error
}
