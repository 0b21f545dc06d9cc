package storage

import "errors"

var (
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
	ErrTransactionNotFound    = errors.New("transaction not found")
)
