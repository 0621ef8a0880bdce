package ledgerclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastprodman/tokenledger/internal/infra/logging"
	"github.com/fastprodman/tokenledger/internal/services/ledger"
)

func newTestClient(url string, opts ...Option) *Client {
	base := []Option{WithBackoff(time.Millisecond), WithLogger(logging.Discard())}

	return New(url, append(base, opts...)...)
}

func TestClient_Balance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/demo-user/balance" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(ledger.Account{UserID: "demo-user", Balance: 250, Version: 2})
	}))
	defer srv.Close()

	acc, err := newTestClient(srv.URL).Balance(t.Context(), "demo-user")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}

	if acc.Balance != 250 || acc.Version != 2 {
		t.Fatalf("unexpected account: %+v", acc)
	}
}

func TestClient_MapsErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusNotFound, ledger.CodeAccountNotFound, ledger.ErrAccountNotFound},
		{http.StatusConflict, ledger.CodeInsufficientFunds, ledger.ErrInsufficientFunds},
		{http.StatusConflict, ledger.CodeStaleVersion, ledger.ErrStaleVersion},
		{http.StatusBadRequest, ledger.CodeValidation, ledger.ErrValidation},
		{http.StatusNotFound, "", ledger.ErrRemoteFailure},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(errorBody{Error: "nope", Code: tt.code})
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Spend(t.Context(), ledger.SpendRequest{UserID: "u1", Amount: 1, Action: "tip"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}

			if calls.Load() != 1 {
				t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
			}
		})
	}
}

func TestClient_RetriesKeepReference(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		refs []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body earnBody

		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		refs = append(refs, body.ReferenceID)
		n := len(refs)
		mu.Unlock()

		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(errorBody{Error: "busy", Code: ledger.CodeInternal})

			return
		}

		_ = json.NewEncoder(w).Encode(ledger.Result{Account: ledger.Account{UserID: "u1", Balance: 10}})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Earn(t.Context(), ledger.EarnRequest{UserID: "u1", Amount: 10, Action: "daily_login"})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}

	if res.Account.Balance != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(refs) != 3 || refs[0] == "" || refs[0] != refs[1] || refs[1] != refs[2] {
		t.Fatalf("every attempt must carry the same generated reference: %v", refs)
	}
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, WithMaxAttempts(2)).Balance(t.Context(), "u1")
	if !errors.Is(err, ledger.ErrRemoteFailure) {
		t.Fatalf("want ErrRemoteFailure, got %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("want 2 attempts, got %d", calls.Load())
	}
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(srv.URL, WithTimeout(50*time.Millisecond), WithMaxAttempts(1))

	start := time.Now()

	_, err := c.Balance(t.Context(), "u1")
	if !errors.Is(err, ledger.ErrRemoteFailure) {
		t.Fatalf("want ErrRemoteFailure on timeout, got %v", err)
	}

	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not honoured")
	}
}

func TestClient_PremiumAndHistory(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/u1/premium/story", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"hasAccess": true})
	})
	mux.HandleFunc("POST /user/u1/premium/story/unlock", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ledger.UnlockResult{ContentID: "story", Cost: 100, CreatorPayout: 80, PlatformFee: 20})
	})
	mux.HandleFunc("GET /user/u1/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "20" {
			t.Errorf("limit not forwarded: %s", r.URL.RawQuery)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"transactions": []ledger.Transaction{{Amount: 5}}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)

	ok, err := c.HasAccess(t.Context(), "u1", "story")
	if err != nil || !ok {
		t.Fatalf("has access: %v %v", ok, err)
	}

	res, err := c.UnlockPremium(t.Context(), "u1", "story")
	if err != nil || res.CreatorPayout+res.PlatformFee != res.Cost {
		t.Fatalf("unlock: %+v %v", res, err)
	}

	txs, err := c.Transactions(t.Context(), "u1", 20, 0)
	if err != nil || len(txs) != 1 {
		t.Fatalf("transactions: %v %v", txs, err)
	}
}
