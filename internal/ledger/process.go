package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"go.uber.org/zap"
)

// RecordSource yields transactions in input order. Next returns io.EOF once
// the stream is exhausted. An error wrapping models.ErrMalformed marks a
// single unusable record; any other error ends the run.
type RecordSource interface {
	Next() (models.Transaction, error)
}

// Summary counts what happened to the records of a run.
type Summary struct {
	Processed int
	Applied   int
	Malformed int
	Rejected  int
	ByReason  map[string]int
}

func (s *Summary) count(err error) {
	if s.ByReason == nil {
		s.ByReason = make(map[string]int)
	}
	s.ByReason[Reason(err)]++
	if ClassOf(err) == ClassMalformed {
		s.Malformed++
	} else {
		s.Rejected++
	}
}

// Fields returns the summary as log fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", s.Processed),
		zap.Int("applied", s.Applied),
		zap.Int("malformed", s.Malformed),
		zap.Int("rejected", s.Rejected),
		zap.Any("by_reason", s.ByReason),
	}
}

// Process folds every record of src into the ledger. Bad records are
// skipped and counted; only a read failure or ctx cancellation stops it.
func (e *Engine) Process(ctx context.Context, src RecordSource) (Summary, error) {
	summary := Summary{ByReason: make(map[string]int)}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		tx, err := src.Next()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			if !errors.Is(err, models.ErrMalformed) {
				return summary, fmt.Errorf("read transaction: %w", err)
			}
			summary.Processed++
			summary.count(err)
			e.logger.Warn("unparseable record skipped", zap.Error(err))
			continue
		}

		summary.Processed++
		if err := e.Apply(ctx, tx); err != nil {
			summary.count(err)
			continue
		}
		summary.Applied++
	}
}
