package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "github.com/MallardLabs/celeris/internal/domain/ledger"

	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, maxAttempts int) *HTTPClient {
	return NewHTTPClient(Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		RealmID:     "realm-1",
		Timeout:     2 * time.Second,
		MaxAttempts: maxAttempts,
	})
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/realms/realm-1/members/user-42/balance", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"balance": 1337}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	balance, err := client.GetBalance(context.Background(), "user-42")
	require.NoError(t, err)
	require.Equal(t, int64(1337), balance)
}

func TestCreditRetriesWithStableIdempotencyKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("X-Idempotency-Key"))
		attempt := len(keys)
		mu.Unlock()

		if attempt == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	err := client.Credit(context.Background(), "user-42", 100)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	require.NotEmpty(t, keys[0])
	// The key must not change between attempts, or a retry could double-credit.
	require.Equal(t, keys[0], keys[1])
}

func TestCreditGivesUpAfterMaxAttempts(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	err := client.Credit(context.Background(), "user-42", 100)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "invalid_amount", "message": "amount must be positive"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	err := client.Credit(context.Background(), "user-42", -1)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, attempts)
}

func TestDebitInsufficientBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code": "insufficient_balance", "message": "balance too low"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	err := client.Debit(context.Background(), "user-42", 9999)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestTransferSendsBothAccounts(t *testing.T) {
	var payload struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/realms/realm-1/transfers", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	require.NoError(t, client.Transfer(context.Background(), "user-7", "user-8", 25))
	require.Equal(t, "user-7", payload.From)
	require.Equal(t, "user-8", payload.To)
	require.Equal(t, int64(25), payload.Amount)
}
