package models

import "encoding/json"

// Account is the balance state of one client.
type Account struct {
	Client    ClientID
	Available Amount // may go negative after a disputed withdrawal
	Held      Amount
	Locked    bool
}

// Total is the full balance. It is derived so that it always equals Available + Held.
func (a Account) Total() Amount {
	return a.Available + a.Held
}

type accountJSON struct {
	Client    ClientID `json:"client"`
	Available Amount   `json:"available"`
	Held      Amount   `json:"held"`
	Total     Amount   `json:"total"`
	Locked    bool     `json:"locked"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	})
}

// HistoryEntry is a deposit or withdrawal kept so that later disputes can
// reference it. Only Disputed ever changes after the entry is recorded.
type HistoryEntry struct {
	Tx       TxID
	Client   ClientID
	Kind     Kind
	Amount   Amount
	Disputed bool
}

// EntryFor builds the history entry of a deposit or withdrawal.
// It reports false for the other kinds, which are not referenceable.
func EntryFor(t Transaction) (HistoryEntry, bool) {
	switch t := t.(type) {
	case Deposit:
		return HistoryEntry{Tx: t.Tx, Client: t.Client, Kind: KindDeposit, Amount: t.Amount}, true
	case Withdrawal:
		return HistoryEntry{Tx: t.Tx, Client: t.Client, Kind: KindWithdrawal, Amount: t.Amount}, true
	}
	return HistoryEntry{}, false
}
