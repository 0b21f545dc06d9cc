package models

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ClientID identifies a client account.
	ClientID uint16
	// TxID identifies a deposit or withdrawal. It is unique across the whole stream.
	TxID uint32
)

var (
	// ErrMalformed is wrapped by every error caused by an unusable input record.
	ErrMalformed        = errors.New("malformed record")
	ErrUnknownKind      = fmt.Errorf("%w: unknown transaction type", ErrMalformed)
	ErrMissingAmount    = fmt.Errorf("%w: amount is required", ErrMalformed)
	ErrUnexpectedAmount = fmt.Errorf("%w: amount is not allowed", ErrMalformed)
)

// Kind is the type of a transaction record.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	case KindDispute:
		return "dispute"
	case KindResolve:
		return "resolve"
	case KindChargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses the lower case name of a kind, ignoring case and spaces.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return KindDeposit, nil
	case "withdrawal":
		return KindWithdrawal, nil
	case "dispute":
		return KindDispute, nil
	case "resolve":
		return KindResolve, nil
	case "chargeback":
		return KindChargeback, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Transaction is one record of the input stream. The set of implementations
// is closed: Deposit, Withdrawal, Dispute, Resolve and Chargeback.
type Transaction interface {
	Kind() Kind
	ClientID() ClientID
	// TxID is the record's own id for deposits and withdrawals, and the
	// referenced id for disputes, resolves and chargebacks.
	TxID() TxID

	isTransaction()
}

// Deposit credits the client's account.
type Deposit struct {
	Client ClientID
	Tx     TxID
	Amount Amount
}

// Withdrawal debits the client's account.
type Withdrawal struct {
	Client ClientID
	Tx     TxID
	Amount Amount
}

// Dispute claims that the referenced deposit or withdrawal was erroneous.
type Dispute struct {
	Client ClientID
	Tx     TxID
}

// Resolve releases the funds held by a dispute.
type Resolve struct {
	Client ClientID
	Tx     TxID
}

// Chargeback finalizes a dispute against the client and locks the account.
type Chargeback struct {
	Client ClientID
	Tx     TxID
}

func (Deposit) Kind() Kind    { return KindDeposit }
func (Withdrawal) Kind() Kind { return KindWithdrawal }
func (Dispute) Kind() Kind    { return KindDispute }
func (Resolve) Kind() Kind    { return KindResolve }
func (Chargeback) Kind() Kind { return KindChargeback }

func (t Deposit) ClientID() ClientID    { return t.Client }
func (t Withdrawal) ClientID() ClientID { return t.Client }
func (t Dispute) ClientID() ClientID    { return t.Client }
func (t Resolve) ClientID() ClientID    { return t.Client }
func (t Chargeback) ClientID() ClientID { return t.Client }

func (t Deposit) TxID() TxID    { return t.Tx }
func (t Withdrawal) TxID() TxID { return t.Tx }
func (t Dispute) TxID() TxID    { return t.Tx }
func (t Resolve) TxID() TxID    { return t.Tx }
func (t Chargeback) TxID() TxID { return t.Tx }

func (Deposit) isTransaction()    {}
func (Withdrawal) isTransaction() {}
func (Dispute) isTransaction()    {}
func (Resolve) isTransaction()    {}
func (Chargeback) isTransaction() {}

// Record is the untyped shape of a transaction as it arrives from a reader.
type Record struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
}

// Transaction converts r into its typed variant. Deposits and withdrawals
// must carry an amount; the other kinds must not.
func (r Record) Transaction() (Transaction, error) {
	kind, err := ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	client, tx := ClientID(r.Client), TxID(r.Tx)
	hasAmount := strings.TrimSpace(r.Amount) != ""

	switch kind {
	case KindDeposit, KindWithdrawal:
		if !hasAmount {
			return nil, fmt.Errorf("%s tx %d: %w", kind, tx, ErrMissingAmount)
		}
		amount, err := ParseAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("%s tx %d: %w", kind, tx, err)
		}
		if kind == KindDeposit {
			return Deposit{Client: client, Tx: tx, Amount: amount}, nil
		}
		return Withdrawal{Client: client, Tx: tx, Amount: amount}, nil
	}

	if hasAmount {
		return nil, fmt.Errorf("%s tx %d: %w", kind, tx, ErrUnexpectedAmount)
	}
	switch kind {
	case KindDispute:
		return Dispute{Client: client, Tx: tx}, nil
	case KindResolve:
		return Resolve{Client: client, Tx: tx}, nil
	default:
		return Chargeback{Client: client, Tx: tx}, nil
	}
}
