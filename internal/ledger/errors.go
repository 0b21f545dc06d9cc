package ledger

import (
	"errors"
	"fmt"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage"
)

var (
	ErrAccountLocked      = errors.New("account is locked")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrClientMismatch     = errors.New("referenced transaction belongs to another client")
	ErrAlreadyDisputed    = errors.New("transaction is already disputed")
	ErrNotDisputed        = errors.New("transaction is not disputed")
	ErrUnknownTransaction = storage.ErrTransactionNotFound

	ErrDuplicateTransactionID = storage.ErrDuplicateTransactionID
	ErrBalanceOverflow        = models.ErrAmountOverflow
)

// Class tells malformed input apart from ordinary business rejections.
type Class uint8

const (
	ClassBusiness Class = iota
	ClassMalformed
)

func (c Class) String() string {
	if c == ClassMalformed {
		return "malformed"
	}
	return "business"
}

// RejectionError is returned by Engine.Apply for a record that was dropped.
// Balances are untouched whenever it is returned.
type RejectionError struct {
	Tx  models.Transaction
	Err error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s client %d tx %d rejected: %v", e.Tx.Kind(), e.Tx.ClientID(), e.Tx.TxID(), e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// Class classifies the rejection.
func (e *RejectionError) Class() Class {
	return ClassOf(e.Err)
}

// ClassOf classifies any error produced while reading or applying a record.
func ClassOf(err error) Class {
	if errors.Is(err, models.ErrMalformed) || errors.Is(err, ErrDuplicateTransactionID) {
		return ClassMalformed
	}
	return ClassBusiness
}

// Reason returns a stable snake_case code for err, suitable for counters,
// events and API responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnknownTransaction):
		return "unknown_transaction"
	case errors.Is(err, ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, ErrNotDisputed):
		return "not_disputed"
	case errors.Is(err, ErrDuplicateTransactionID):
		return "duplicate_transaction_id"
	case errors.Is(err, models.ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrBalanceOverflow):
		return "balance_overflow"
	}
	return "unknown"
}
