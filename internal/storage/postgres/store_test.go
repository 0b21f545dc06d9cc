package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SnapshotStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSnapshotStore(db)
	store.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return store, mock
}

var copyStatement = regexp.QuoteMeta(`COPY "account_snapshots" ("run_id", "client", "available", "held", "total", "locked", "taken_at") FROM STDIN`)

func TestSnapshotStore_EnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS account_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_WriteSnapshot(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	runID := store.RunID().String()
	takenAt := store.now().UTC()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(copyStatement)
	prep.ExpectExec().
		WithArgs(runID, int64(1), "10.0000", "5.0000", "15.0000", false, takenAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(runID, int64(2), "-80.0000", "0.0000", "-80.0000", true, takenAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	accounts := []models.Account{
		{Client: 1, Available: models.MustParseAmount("10"), Held: models.MustParseAmount("5")},
		{Client: 2, Available: models.MustParseAmount("-80"), Locked: true},
	}
	require.NoError(t, store.WriteSnapshot(context.Background(), accounts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_WriteSnapshotRollsBack(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	broken := errors.New("disk full")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(copyStatement)
	prep.ExpectExec().WillReturnError(broken)
	mock.ExpectRollback()

	err := store.WriteSnapshot(context.Background(), []models.Account{{Client: 1}})
	require.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "copy client 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_BeginFails(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.WriteSnapshot(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin snapshot")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_RunIDsDiffer(t *testing.T) {
	t.Parallel()

	a, _ := newMockStore(t)
	b, _ := newMockStore(t)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
