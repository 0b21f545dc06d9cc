package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	return NewServer(ledger.NewEngine(memory.NewHistoryStore()), nil)
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	status, body := do(t, newTestServer(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_PostTransaction(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	status, body := do(t, s, http.MethodPost, "/transactions", `{"type":"deposit","client":1,"tx":1,"amount":"10.5"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "10.5000", body["available"])
	assert.Equal(t, "10.5000", body["total"])

	status, body = do(t, s, http.MethodPost, "/transactions", `{"type":"withdrawal","client":1,"tx":2,"amount":2}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "8.5000", body["available"])

	status, body = do(t, s, http.MethodPost, "/transactions", `{"type":"dispute","client":1,"tx":1}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "-2.0000", body["available"])
	assert.Equal(t, "10.5000", body["held"])

	status, body = do(t, s, http.MethodPost, "/transactions", `{"type":"chargeback","client":1,"tx":1}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["locked"])
	assert.Equal(t, "-2.0000", body["total"])
}

func TestServer_PostTransactionRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  []string
		body   string
		status int
		code   string
	}{
		{name: "invalid json", body: `{"type":`, status: http.StatusBadRequest, code: "malformed"},
		{name: "unknown type", body: `{"type":"refund","client":1,"tx":1}`, status: http.StatusBadRequest, code: "malformed"},
		{name: "missing amount", body: `{"type":"deposit","client":1,"tx":1}`, status: http.StatusBadRequest, code: "malformed"},
		{name: "negative amount", body: `{"type":"deposit","client":1,"tx":1,"amount":"-1"}`, status: http.StatusBadRequest, code: "malformed"},
		{name: "too precise", body: `{"type":"deposit","client":1,"tx":1,"amount":"1.00001"}`, status: http.StatusBadRequest, code: "malformed"},
		{name: "client out of range", body: `{"type":"deposit","client":70000,"tx":1,"amount":"1"}`, status: http.StatusBadRequest, code: "malformed"},
		{
			name:   "duplicate id",
			setup:  []string{`{"type":"deposit","client":1,"tx":1,"amount":"1"}`},
			body:   `{"type":"deposit","client":1,"tx":1,"amount":"1"}`,
			status: http.StatusBadRequest,
			code:   "duplicate_transaction_id",
		},
		{
			name:   "insufficient funds",
			setup:  []string{`{"type":"deposit","client":1,"tx":1,"amount":"1"}`},
			body:   `{"type":"withdrawal","client":1,"tx":2,"amount":"5"}`,
			status: http.StatusUnprocessableEntity,
			code:   "insufficient_funds",
		},
		{name: "unknown reference", body: `{"type":"dispute","client":1,"tx":99}`, status: http.StatusUnprocessableEntity, code: "unknown_transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer()
			for _, body := range tt.setup {
				status, _ := do(t, s, http.MethodPost, "/transactions", body)
				require.Equal(t, http.StatusCreated, status)
			}

			status, body := do(t, s, http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestServer_AmountDecodingErrorIsReported(t *testing.T) {
	t.Parallel()

	status, body := do(t, newTestServer(), http.MethodPost, "/transactions", `{"type":"deposit","client":1,"tx":1,"amount":1.00001}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed", body["code"])
	assert.Contains(t, body["message"], "fractional digits")
}

func TestServer_Accounts(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	for _, body := range []string{
		`{"type":"deposit","client":2,"tx":1,"amount":"3"}`,
		`{"type":"deposit","client":1,"tx":2,"amount":"4"}`,
	} {
		status, _ := do(t, s, http.MethodPost, "/transactions", body)
		require.Equal(t, http.StatusCreated, status)
	}

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/accounts", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accounts []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accounts))
	require.Len(t, accounts, 2)
	assert.EqualValues(t, 1, accounts[0]["client"])
	assert.EqualValues(t, 2, accounts[1]["client"])

	status, body := do(t, s, http.MethodGet, "/accounts/2", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3.0000", body["available"])

	status, body = do(t, s, http.MethodGet, "/accounts/9", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "account_not_found", body["code"])

	status, body = do(t, s, http.MethodGet, "/accounts/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed", body["code"])
}

func TestServer_UnknownRoute(t *testing.T) {
	t.Parallel()

	status, body := do(t, newTestServer(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "http_error", body["code"])
}

func TestServer_ConcurrentRequests(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := `{"type":"deposit","client":1,"tx":` + strconv.Itoa(1000+i) + `,"amount":"1"}`
			req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.App().Test(req)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	status, body := do(t, s, http.MethodGet, "/accounts/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "20.0000", body["available"])
}
