package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

const snapshotTable = "account_snapshots"

const createSnapshotTable = `CREATE TABLE IF NOT EXISTS account_snapshots (
	run_id    uuid        NOT NULL,
	client    integer     NOT NULL,
	available numeric     NOT NULL,
	held      numeric     NOT NULL,
	total     numeric     NOT NULL,
	locked    boolean     NOT NULL,
	taken_at  timestamptz NOT NULL,
	PRIMARY KEY (run_id, client)
)`

// SnapshotStore writes the final account states of a run into Postgres.
// Every instance tags its rows with its own run id.
type SnapshotStore struct {
	db    *sql.DB
	runID uuid.UUID
	now   func() time.Time
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{
		db:    db,
		runID: uuid.New(),
		now:   time.Now,
	}
}

// RunID identifies the rows written by this store.
func (p *SnapshotStore) RunID() uuid.UUID {
	return p.runID
}

// EnsureSchema creates the snapshot table when missing.
func (p *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("create %s: %w", snapshotTable, err)
	}
	return nil
}

// WriteSnapshot copies all accounts in a single transaction. Nothing is
// written if any row fails.
func (p *SnapshotStore) WriteSnapshot(ctx context.Context, accounts []models.Account) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}

	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	stmt, err := dbTx.PrepareContext(ctx, pq.CopyIn(snapshotTable,
		"run_id", "client", "available", "held", "total", "locked", "taken_at"))
	if err != nil {
		return fmt.Errorf("prepare snapshot copy: %w", err)
	}
	defer stmt.Close()

	takenAt := p.now().UTC()
	for _, acct := range accounts {
		_, err = stmt.ExecContext(ctx,
			p.runID.String(),
			int64(acct.Client),
			acct.Available.String(),
			acct.Held.String(),
			acct.Total().String(),
			acct.Locked,
			takenAt,
		)
		if err != nil {
			return fmt.Errorf("copy client %d: %w", acct.Client, err)
		}
	}

	// An argument-less Exec flushes the COPY buffer.
	if _, err = stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush snapshot copy: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

var _ interfaces.SnapshotWriter = (*SnapshotStore)(nil)
