package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

var reportHeader = []string{"client", "available", "held", "total", "locked"}

// Writer renders account snapshots as CSV with a header row.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteSnapshot writes one row per account, amounts with four fractional digits.
func (w *Writer) WriteSnapshot(ctx context.Context, accounts []models.Account) error {
	cw := csv.NewWriter(w.w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	row := make([]string, len(reportHeader))
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		row[0] = strconv.FormatUint(uint64(acct.Client), 10)
		row[1] = acct.Available.String()
		row[2] = acct.Held.String()
		row[3] = acct.Total().String()
		row[4] = strconv.FormatBool(acct.Locked)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", acct.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

var _ interfaces.SnapshotWriter = (*Writer)(nil)
