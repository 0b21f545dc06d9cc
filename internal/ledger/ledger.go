package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models/events"
	"go.uber.org/zap"
)

// Engine applies transaction records to client accounts, one at a time and
// in input order. It exclusively owns the account table and the history
// store it is given.
//
// An Engine is not safe for concurrent use; callers that receive records
// from several goroutines must serialise them.
type Engine struct {
	history  interfaces.HistoryStore             // referenceable deposits and withdrawals
	accounts map[models.ClientID]*models.Account // one account per client, created on first reference

	logger    *zap.Logger               // rejections, locks and publish failures
	publisher interfaces.EventPublisher // optional, nil disables events
	topic     string                    // topic for rejection and lock events
	now       func() time.Time          // stamps events; swapped in tests
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for rejections and lock events.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPublisher publishes rejection and lock events to topic. Publishing is
// best effort: a failure is logged and never affects the ledger.
func WithPublisher(publisher interfaces.EventPublisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = publisher
		e.topic = topic
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine with an empty account table on top of history.
func NewEngine(history interfaces.HistoryStore, opts ...Option) *Engine {
	e := &Engine{
		history:  history,
		accounts: make(map[models.ClientID]*models.Account),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// account returns the account of client, creating it on first reference.
func (e *Engine) account(client models.ClientID) *models.Account {
	acct, ok := e.accounts[client]
	if !ok {
		acct = &models.Account{Client: client}
		e.accounts[client] = acct
	}
	return acct
}

// Apply validates tx and applies it. A rejected record leaves every balance
// untouched and yields a *RejectionError.
func (e *Engine) Apply(ctx context.Context, tx models.Transaction) error {
	// The account exists from now on, even if the record is rejected
	acct := e.account(tx.ClientID())

	var err error
	// A locked account accepts nothing, deposits included
	if acct.Locked {
		err = ErrAccountLocked
	} else {
		switch t := tx.(type) {
		case models.Deposit:
			err = e.deposit(acct, t)
		case models.Withdrawal:
			err = e.withdraw(acct, t)
		case models.Dispute:
			err = e.dispute(acct, t)
		case models.Resolve:
			err = e.resolve(acct, t)
		case models.Chargeback:
			err = e.chargeback(ctx, acct, t)
		default:
			err = fmt.Errorf("%w: %T", models.ErrUnknownKind, tx)
		}
	}

	// Every helper validates before it mutates, so a failure here leaves
	// balances and history exactly as they were
	if err != nil {
		rejection := &RejectionError{Tx: tx, Err: err}
		e.reject(ctx, rejection)
		return rejection
	}
	return nil
}

// deposit credits available funds and makes the deposit disputable.
func (e *Engine) deposit(acct *models.Account, d models.Deposit) error {
	// Idempotency check: a reused id never touches the balance
	if _, exists := e.history.Lookup(d.Tx); exists {
		return ErrDuplicateTransactionID
	}

	// Compute the new balance first; total must stay representable too
	available, err := acct.Available.Add(d.Amount)
	if err != nil {
		return err
	}
	if _, err := available.Add(acct.Held); err != nil {
		return err
	}

	// Record before mutating so a store failure leaves the account as it was
	entry, _ := models.EntryFor(d)
	if err := e.history.Record(entry); err != nil {
		return err
	}
	acct.Available = available
	return nil
}

// withdraw debits available funds. Held funds cannot be withdrawn.
func (e *Engine) withdraw(acct *models.Account, w models.Withdrawal) error {
	// Idempotency check, same rule as deposits
	if _, exists := e.history.Lookup(w.Tx); exists {
		return ErrDuplicateTransactionID
	}
	// Basic validation: only available funds can leave the account
	if acct.Available < w.Amount {
		return ErrInsufficientFunds
	}

	available, err := acct.Available.Sub(w.Amount)
	if err != nil {
		return err
	}

	entry, _ := models.EntryFor(w)
	if err := e.history.Record(entry); err != nil {
		return err
	}
	acct.Available = available
	return nil
}

// referenced returns the history entry a dispute, resolve or chargeback
// points at, provided it belongs to client.
func (e *Engine) referenced(client models.ClientID, tx models.TxID) (models.HistoryEntry, error) {
	entry, ok := e.history.Lookup(tx)
	if !ok {
		return models.HistoryEntry{}, ErrUnknownTransaction
	}
	if entry.Client != client {
		return models.HistoryEntry{}, ErrClientMismatch
	}
	return entry, nil
}

// dispute holds the referenced amount. For a withdrawal this drives
// available below zero, since the funds already left total.
func (e *Engine) dispute(acct *models.Account, d models.Dispute) error {
	entry, err := e.referenced(d.Client, d.Tx)
	if err != nil {
		return err
	}
	if entry.Disputed {
		return ErrAlreadyDisputed
	}

	// Move the amount from available to held; total is unchanged
	available, err := acct.Available.Sub(entry.Amount)
	if err != nil {
		return err
	}
	held, err := acct.Held.Add(entry.Amount)
	if err != nil {
		return err
	}

	if err := e.history.MarkDisputed(d.Tx); err != nil {
		return err
	}
	acct.Available, acct.Held = available, held
	return nil
}

// resolve releases a disputed amount back to available funds.
func (e *Engine) resolve(acct *models.Account, r models.Resolve) error {
	entry, err := e.referenced(r.Client, r.Tx)
	if err != nil {
		return err
	}
	if !entry.Disputed {
		return ErrNotDisputed
	}

	// Exact reverse of the dispute
	available, err := acct.Available.Add(entry.Amount)
	if err != nil {
		return err
	}
	held, err := acct.Held.Sub(entry.Amount)
	if err != nil {
		return err
	}

	if err := e.history.ClearDisputed(r.Tx); err != nil {
		return err
	}
	acct.Available, acct.Held = available, held
	return nil
}

// chargeback removes the held amount for good and locks the account. The
// history entry keeps its disputed flag; the lock prevents any further
// reference to it.
func (e *Engine) chargeback(ctx context.Context, acct *models.Account, c models.Chargeback) error {
	entry, err := e.referenced(c.Client, c.Tx)
	if err != nil {
		return err
	}
	if !entry.Disputed {
		return ErrNotDisputed
	}

	// The held funds leave the account for good, and so they leave total
	held, err := acct.Held.Sub(entry.Amount)
	if err != nil {
		return err
	}
	acct.Held = held
	acct.Locked = true // terminal: every later record for this client is rejected

	e.logger.Info("account locked",
		zap.Uint16("client", uint16(acct.Client)),
		zap.Uint32("tx", uint32(c.Tx)),
		zap.Stringer("amount", entry.Amount),
	)
	e.publish(ctx, acct.Client, events.AccountLocked{
		EventID:    uuid.NewString(),
		EventType:  events.TypeAccountLocked,
		Client:     uint16(acct.Client),
		Tx:         uint32(c.Tx),
		Amount:     entry.Amount.Decimal(),
		Available:  acct.Available.Decimal(),
		Held:       acct.Held.Decimal(),
		Total:      acct.Total().Decimal(),
		OccurredAt: e.now().UTC(),
	})
	return nil
}

// reject logs a dropped record and publishes a TransactionRejected event.
// Malformed input is a warning; business rejections are routine.
func (e *Engine) reject(ctx context.Context, rejection *RejectionError) {
	class := rejection.Class()
	fields := []zap.Field{
		zap.Stringer("kind", rejection.Tx.Kind()),
		zap.Uint16("client", uint16(rejection.Tx.ClientID())),
		zap.Uint32("tx", uint32(rejection.Tx.TxID())),
		zap.String("reason", Reason(rejection.Err)),
	}
	if class == ClassMalformed {
		e.logger.Warn("malformed transaction skipped", fields...)
	} else {
		e.logger.Debug("transaction rejected", fields...)
	}

	e.publish(ctx, rejection.Tx.ClientID(), events.TransactionRejected{
		EventID:    uuid.NewString(),
		EventType:  events.TypeTransactionRejected,
		Kind:       rejection.Tx.Kind().String(),
		Client:     uint16(rejection.Tx.ClientID()),
		Tx:         uint32(rejection.Tx.TxID()),
		Reason:     Reason(rejection.Err),
		Class:      class.String(),
		OccurredAt: e.now().UTC(),
	})
}

// publish sends event keyed by client. Publishing is best effort.
func (e *Engine) publish(ctx context.Context, client models.ClientID, event any) {
	if e.publisher == nil {
		return
	}
	key := strconv.FormatUint(uint64(client), 10)
	if err := e.publisher.Publish(ctx, e.topic, key, event); err != nil {
		e.logger.Warn("publish event", zap.String("topic", e.topic), zap.Error(err))
	}
}

// Account returns a copy of the account of client.
func (e *Engine) Account(client models.ClientID) (models.Account, bool) {
	acct, ok := e.accounts[client]
	if !ok {
		return models.Account{}, false
	}
	return *acct, true
}

// Snapshot returns a copy of every known account, ordered by client id.
func (e *Engine) Snapshot() []models.Account {
	accounts := make([]models.Account, 0, len(e.accounts))
	for _, acct := range e.accounts {
		accounts = append(accounts, *acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Client < accounts[j].Client
	})
	return accounts
}

// HistoryLen returns the number of referenceable transactions seen so far.
func (e *Engine) HistoryLen() int {
	return e.history.Len()
}
