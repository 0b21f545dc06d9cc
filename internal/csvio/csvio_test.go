package csvio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	tx   models.Transaction
	line int // set for parse errors
}

func readAll(t *testing.T, input string) []readResult {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var out []readResult
	for {
		tx, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			require.ErrorIs(t, err, models.ErrMalformed)
			out = append(out, readResult{line: parseErr.Line})
			continue
		}
		out = append(out, readResult{tx: tx})
	}
}

func TestReader_PaddedInput(t *testing.T) {
	t.Parallel()

	input := `type,       client,  tx,  amount
deposit,         1,   1,     1.0
deposit,         2,   2,     2.0
withdrawal,      1,   4,     1.5
dispute,         1,   1,
resolve,         1,   1
chargeback,      2,   2,
`
	got := readAll(t, input)
	require.Len(t, got, 6)
	assert.Equal(t, models.Deposit{Client: 1, Tx: 1, Amount: models.MustParseAmount("1")}, got[0].tx)
	assert.Equal(t, models.Deposit{Client: 2, Tx: 2, Amount: models.MustParseAmount("2")}, got[1].tx)
	assert.Equal(t, models.Withdrawal{Client: 1, Tx: 4, Amount: models.MustParseAmount("1.5")}, got[2].tx)
	assert.Equal(t, models.Dispute{Client: 1, Tx: 1}, got[3].tx)
	assert.Equal(t, models.Resolve{Client: 1, Tx: 1}, got[4].tx)
	assert.Equal(t, models.Chargeback{Client: 2, Tx: 2}, got[5].tx)
}

func TestReader_BadRowsAreSkippable(t *testing.T) {
	t.Parallel()

	input := `type,client,tx,amount
deposit,1,1,1.0
transfer,1,2,1.0
deposit,70000,3,1.0
deposit,1,x,1.0
withdrawal,1,5,
dispute,1,1,5
deposit,1,6,0.00001
deposit
deposit,1,7,2.0
`
	got := readAll(t, input)
	require.Len(t, got, 9)
	assert.NotNil(t, got[0].tx)
	for i, want := range []int{3, 4, 5, 6, 7, 8, 9} {
		assert.Nil(t, got[i+1].tx)
		assert.Equal(t, want, got[i+1].line)
	}
	assert.Equal(t, models.Deposit{Client: 1, Tx: 7, Amount: models.MustParseAmount("2")}, got[8].tx)
}

func TestReader_HeaderOrderAndNoHeader(t *testing.T) {
	t.Parallel()

	reordered := readAll(t, "client,type,amount,tx\n1,deposit,3.5,10\n")
	require.Len(t, reordered, 1)
	assert.Equal(t, models.Deposit{Client: 1, Tx: 10, Amount: models.MustParseAmount("3.5")}, reordered[0].tx)

	bare := readAll(t, "withdrawal,2,11,0.5\n\n , , , \n")
	require.Len(t, bare, 1)
	assert.Equal(t, models.Withdrawal{Client: 2, Tx: 11, Amount: models.MustParseAmount("0.5")}, bare[0].tx)
}

func TestReader_HeaderAfterBlankRows(t *testing.T) {
	t.Parallel()

	got := readAll(t, ",,,\n\n  ,  \nclient,type,tx,amount\n3,deposit,12,4.25\n")
	require.Len(t, got, 1)
	assert.Equal(t, models.Deposit{Client: 3, Tx: 12, Amount: models.MustParseAmount("4.25")}, got[0].tx)
}

func TestReader_QuoteErrorIsMalformed(t *testing.T) {
	t.Parallel()

	got := readAll(t, "type,client,tx,amount\ndeposit,1,1,1\"0\ndeposit,1,2,1.0\n")
	require.Len(t, got, 2)
	assert.Nil(t, got[0].tx)
	assert.Equal(t, 2, got[0].line)
	assert.Equal(t, models.Deposit{Client: 1, Tx: 2, Amount: models.MustParseAmount("1")}, got[1].tx)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestReader_IOErrorIsNotMalformed(t *testing.T) {
	t.Parallel()

	_, err := NewReader(failingReader{}).Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrMalformed)
}

func TestWriter_WriteSnapshot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	accounts := []models.Account{
		{Client: 1, Available: models.MustParseAmount("1.5"), Held: 0},
		{Client: 2, Available: models.MustParseAmount("-80"), Held: models.MustParseAmount("90")},
		{Client: 3, Locked: true},
	}

	require.NoError(t, NewWriter(&buf).WriteSnapshot(context.Background(), accounts))
	assert.Equal(t, `client,available,held,total,locked
1,1.5000,0.0000,1.5000,false
2,-80.0000,90.0000,10.0000,false
3,0.0000,0.0000,0.0000,true
`, buf.String())
}

func TestWriter_EmptySnapshot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteSnapshot(context.Background(), nil))
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}
