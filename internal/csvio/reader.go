// Package csvio reads transaction records from CSV and writes the account
// report back as CSV.
//
// Input rows look like
//
//	type,       client, tx, amount
//	deposit,         1,  1,    1.0
//	dispute,         1,  1,
//
// Surrounding whitespace is ignored and the amount column may be omitted on
// rows that do not carry one.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

var defaultColumns = []string{"type", "client", "tx", "amount"}

// ParseError reports an unusable row. It wraps models.ErrMalformed so that
// a ledger.Engine skips the row and carries on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{models.ErrMalformed, e.Err}
}

// Reader streams typed transactions out of a CSV document.
// It implements ledger.RecordSource.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	started bool
}

// NewReader returns a Reader over r. A header row is detected and used to
// locate columns; without one the default order type,client,tx,amount applies.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr, columns: indexColumns(defaultColumns)}
}

func indexColumns(names []string) map[string]int {
	columns := make(map[string]int, len(names))
	for i, name := range names {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

// Next returns the next transaction, io.EOF at the end of input, or a
// *ParseError for a row that cannot be used.
func (r *Reader) Next() (models.Transaction, error) {
	for {
		row, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.StartLine, Err: csvErr.Err}
			}
			return nil, err
		}

		if isBlank(row) {
			continue
		}
		// Only the first non-blank row may be a header.
		if !r.started {
			r.started = true
			if isHeader(row) {
				r.columns = indexColumns(row)
				continue
			}
		}

		tx, err := r.parse(row)
		if err != nil {
			line, _ := r.csv.FieldPos(0)
			return nil, &ParseError{Line: line, Err: err}
		}
		return tx, nil
	}
}

// isHeader reports whether row names its columns. No data row can carry
// the literal "type" since it is not a transaction kind.
func isHeader(row []string) bool {
	for _, field := range row {
		if strings.EqualFold(strings.TrimSpace(field), "type") {
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func (r *Reader) field(row []string, name string) (string, bool) {
	i, ok := r.columns[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func (r *Reader) parse(row []string) (models.Transaction, error) {
	kind, ok := r.field(row, "type")
	if !ok {
		return nil, errors.New("missing type column")
	}
	clientField, ok := r.field(row, "client")
	if !ok {
		return nil, errors.New("missing client column")
	}
	txField, ok := r.field(row, "tx")
	if !ok {
		return nil, errors.New("missing tx column")
	}
	amount, _ := r.field(row, "amount")

	client, err := strconv.ParseUint(clientField, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", clientField, err)
	}
	tx, err := strconv.ParseUint(txField, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("tx %q: %w", txField, err)
	}

	return models.Record{
		Type:   kind,
		Client: uint16(client),
		Tx:     uint32(tx),
		Amount: amount,
	}.Transaction()
}
