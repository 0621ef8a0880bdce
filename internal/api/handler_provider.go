package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// LedgerService is the part of *ledger.Service the HTTP layer needs.
type LedgerService interface {
	Balance(ctx context.Context, userID string) (ledger.Account, error)
	Transactions(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
	RecordTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	Earn(ctx context.Context, req ledger.EarnRequest) (ledger.Result, error)
	Spend(ctx context.Context, req ledger.SpendRequest) (ledger.Result, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Result, error)
	UnlockPremium(ctx context.Context, userID, contentID string) (ledger.UnlockResult, error)
	HasAccess(ctx context.Context, userID, contentID string) (bool, error)
}

var _ LedgerService = (*ledger.Service)(nil)

// HandlerProvider wraps a LedgerService and exposes HTTP handlers.
type HandlerProvider struct {
	svc LedgerService
	log *slog.Logger
}

func NewHandler(svc LedgerService, logger *slog.Logger) *HandlerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &HandlerProvider{svc: svc, log: logger.With("component", "api")}
}

// --- Helpers ---

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *HandlerProvider) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.log.Error("failed to encode JSON response", "error", err)
	}
}

func (h *HandlerProvider) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeServiceError maps ledger outcomes onto status codes. Messages of
// unexpected failures are not echoed to the caller.
func (h *HandlerProvider) writeServiceError(w http.ResponseWriter, err error) {
	code := ledger.ErrorCode(err)

	switch code {
	case ledger.CodeValidation:
		h.writeError(w, http.StatusBadRequest, code, err.Error())
	case ledger.CodeAccountNotFound, ledger.CodeContentNotFound:
		h.writeError(w, http.StatusNotFound, code, err.Error())
	case ledger.CodeInsufficientFunds, ledger.CodeIdempotencyConflict,
		ledger.CodeStaleVersion, ledger.CodeDuplicateTransaction:
		h.writeError(w, http.StatusConflict, code, err.Error())
	case ledger.CodeNamespaceUnavailable:
		h.writeError(w, http.StatusServiceUnavailable, code, "ledger unavailable")
	default:
		h.writeError(w, http.StatusInternalServerError, code, "internal error")
	}
}

// pathParam reads a chi route parameter such as {userId} or {contentId}.
func pathParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		return "", fmt.Errorf("missing %s", name)
	}

	return v, nil
}

// decodeBody limits the body size and rejects unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	//nolint:errcheck
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}

	return n, nil
}
