package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fastprodman/tokenledger/internal/infra/logging"
	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

// fakeLedger records the last request and returns canned answers.
type fakeLedger struct {
	err       error
	account   ledger.Account
	lastEarn  ledger.EarnRequest
	lastSpend ledger.SpendRequest
	lastXfer  ledger.TransferRequest
	lastLimit int
	hasAccess bool
	calls     int
}

func (f *fakeLedger) Balance(_ context.Context, userID string) (ledger.Account, error) {
	f.calls++
	if f.err != nil {
		return ledger.Account{UserID: userID}, f.err
	}

	acc := f.account
	acc.UserID = userID

	return acc, nil
}

func (f *fakeLedger) Transactions(_ context.Context, userID string, limit, _ int) ([]ledger.Transaction, error) {
	f.calls++
	f.lastLimit = limit

	return []ledger.Transaction{{UserID: userID, Type: ledger.TxEarn, Amount: 5, Action: ledger.ActionDailyLogin}}, f.err
}

func (f *fakeLedger) RecordTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	f.calls++
	t.ID = uuid.New()

	return t, f.err
}

func (f *fakeLedger) Earn(_ context.Context, req ledger.EarnRequest) (ledger.Result, error) {
	f.calls++
	f.lastEarn = req

	return ledger.Result{Account: ledger.Account{UserID: req.UserID, Balance: req.Amount}}, f.err
}

func (f *fakeLedger) Spend(_ context.Context, req ledger.SpendRequest) (ledger.Result, error) {
	f.calls++
	f.lastSpend = req

	return ledger.Result{}, f.err
}

func (f *fakeLedger) Transfer(_ context.Context, req ledger.TransferRequest) (ledger.Result, error) {
	f.calls++
	f.lastXfer = req

	return ledger.Result{}, f.err
}

func (f *fakeLedger) UnlockPremium(_ context.Context, userID, contentID string) (ledger.UnlockResult, error) {
	f.calls++

	return ledger.UnlockResult{ContentID: contentID, Cost: 100, CreatorPayout: 80, PlatformFee: 20}, f.err
}

func (f *fakeLedger) HasAccess(context.Context, string, string) (bool, error) {
	f.calls++

	return f.hasAccess, f.err
}

func serve(t *testing.T, svc LedgerService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	NewRouter(svc, logging.Discard()).ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody

	err := json.NewDecoder(rec.Body).Decode(&body)
	if err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	return body
}

func TestHandlers_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("earn: %w", ledger.ErrValidation), http.StatusBadRequest, ledger.CodeValidation},
		{"not_found", ledger.ErrAccountNotFound, http.StatusNotFound, ledger.CodeAccountNotFound},
		{"content_not_found", ledger.ErrContentNotFound, http.StatusNotFound, ledger.CodeContentNotFound},
		{"insufficient", ledger.ErrInsufficientFunds, http.StatusConflict, ledger.CodeInsufficientFunds},
		{"conflict", ledger.ErrIdempotencyConflict, http.StatusConflict, ledger.CodeIdempotencyConflict},
		{"stale", ledger.ErrStaleVersion, http.StatusConflict, ledger.CodeStaleVersion},
		{"namespace", ledger.ErrNamespaceUnavailable, http.StatusServiceUnavailable, ledger.CodeNamespaceUnavailable},
		{"remote", fmt.Errorf("balance: %w: dial tcp", ledger.ErrRemoteFailure), http.StatusInternalServerError, ledger.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, &fakeLedger{err: tt.err}, http.MethodGet, "/user/u1/balance", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: want %d, got %d", tt.wantStatus, rec.Code)
			}

			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Fatalf("code: want %q, got %q", tt.wantCode, body.Code)
			}

			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(body.Error, "dial") {
				t.Fatalf("internal details leaked: %q", body.Error)
			}
		})
	}
}

func TestHandlers_Balance(t *testing.T) {
	t.Parallel()

	svc := &fakeLedger{account: ledger.Account{Balance: 250, LifetimeEarned: 300, LifetimeSpent: 50, Version: 2}}

	rec := serve(t, svc, http.MethodGet, "/user/demo-user/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var acc ledger.Account

	err := json.NewDecoder(rec.Body).Decode(&acc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if acc.UserID != "demo-user" || acc.Balance != 250 || acc.Version != 2 {
		t.Fatalf("unexpected account: %+v", acc)
	}
}

func TestHandlers_EarnPassesBody(t *testing.T) {
	t.Parallel()

	svc := &fakeLedger{}

	rec := serve(t, svc, http.MethodPost, "/user/u1/earn",
		`{"amount":600,"type":"purchase","action":"token_purchase","referenceId":"pay-1","metadata":{"packageId":"popular"},"expectedVersion":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	got := svc.lastEarn
	if got.UserID != "u1" || got.Amount != 600 || got.Type != ledger.TxPurchase || got.ReferenceID != "pay-1" {
		t.Fatalf("unexpected request: %+v", got)
	}

	if got.ExpectedVersion == nil || *got.ExpectedVersion != 4 || got.Metadata["packageId"] != "popular" {
		t.Fatalf("optional fields lost: %+v", got)
	}
}

func TestHandlers_BodyValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty_body", "/user/u1/spend", ""},
		{"invalid_json", "/user/u1/spend", `{"amount":`},
		{"unknown_field", "/user/u1/spend", `{"amount":1,"action":"tip","bogus":true}`},
		{"string_amount", "/user/u1/earn", `{"amount":"10","action":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeLedger{}

			rec := serve(t, svc, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d", rec.Code)
			}

			if svc.calls != 0 {
				t.Fatalf("service must not be called on bad input")
			}
		})
	}
}

func TestHandlers_TransferAndPremium(t *testing.T) {
	t.Parallel()

	svc := &fakeLedger{hasAccess: true}

	rec := serve(t, svc, http.MethodPost, "/user/fan/transfer", `{"recipientId":"artist","amount":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer status %d", rec.Code)
	}

	if svc.lastXfer.FromUserID != "fan" || svc.lastXfer.ToUserID != "artist" || svc.lastXfer.Amount != 15 {
		t.Fatalf("unexpected transfer: %+v", svc.lastXfer)
	}

	rec = serve(t, svc, http.MethodGet, "/user/fan/premium/story", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"hasAccess":true`) {
		t.Fatalf("access: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, svc, http.MethodPost, "/user/fan/premium/story/unlock", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"creatorPayout":80`) {
		t.Fatalf("unlock: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandlers_ListTransactionsQuery(t *testing.T) {
	t.Parallel()

	svc := &fakeLedger{}

	rec := serve(t, svc, http.MethodGet, "/user/u1/transactions?limit=5", "")
	if rec.Code != http.StatusOK || svc.lastLimit != 5 {
		t.Fatalf("list: %d limit=%d", rec.Code, svc.lastLimit)
	}

	rec = serve(t, svc, http.MethodGet, "/user/u1/transactions?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for bad limit, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeLedger{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
