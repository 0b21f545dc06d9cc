package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeTransactionRejected = "transaction_rejected"
	TypeAccountLocked       = "account_locked"
	TypeAccountSnapshot     = "account_snapshot"
)

// TransactionRejected is emitted for every record the engine drops.
type TransactionRejected struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Kind       string    `json:"kind"`
	Client     uint16    `json:"client"`
	Tx         uint32    `json:"tx"`
	Reason     string    `json:"reason"`
	Class      string    `json:"class"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountLocked is emitted when a chargeback freezes an account.
type AccountLocked struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Client     uint16          `json:"client"`
	Tx         uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	Available  decimal.Decimal `json:"available"`
	Held       decimal.Decimal `json:"held"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// AccountSnapshot carries the final state of one account at the end of a run.
type AccountSnapshot struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RunID     string          `json:"run_id"`
	Client    uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
	TakenAt   time.Time       `json:"taken_at"`
}
