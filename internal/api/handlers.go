package api

import (
	"net/http"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

type earnRequest struct {
	Amount          int64          `json:"amount"`
	Type            ledger.TxType  `json:"type"`
	Action          string         `json:"action"`
	ReferenceID     string         `json:"referenceId"`
	Description     string         `json:"description"`
	Metadata        map[string]any `json:"metadata"`
	ExpectedVersion *int64         `json:"expectedVersion"`
}

type spendRequest struct {
	Amount          int64          `json:"amount"`
	Action          string         `json:"action"`
	RecipientID     string         `json:"recipientId"`
	ReferenceID     string         `json:"referenceId"`
	Description     string         `json:"description"`
	Metadata        map[string]any `json:"metadata"`
	ExpectedVersion *int64         `json:"expectedVersion"`
}

type transferRequest struct {
	RecipientID string `json:"recipientId"`
	Amount      int64  `json:"amount"`
	Action      string `json:"action"`
	ReferenceID string `json:"referenceId"`
	Description string `json:"description"`
}

type recordRequest struct {
	ID          uuid.UUID      `json:"id"`
	Type        ledger.TxType  `json:"type"`
	Amount      int64          `json:"amount"`
	Action      string         `json:"action"`
	RecipientID string         `json:"recipientId"`
	ReferenceID string         `json:"referenceId"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type accessResponse struct {
	UserID    string `json:"userId"`
	ContentID string `json:"contentId"`
	HasAccess bool   `json:"hasAccess"`
}

// GetBalanceHandler handles GET /user/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	acc, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, acc)
}

// ListTransactionsHandler handles GET /user/{userId}/transactions?limit=&offset=
func (h *HandlerProvider) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	txs, err := h.svc.Transactions(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "transactions": txs})
}

// RecordTransactionHandler handles POST /user/{userId}/transactions
func (h *HandlerProvider) RecordTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	var req recordRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	rec, err := h.svc.RecordTransaction(r.Context(), ledger.Transaction{
		ID:          req.ID,
		UserID:      userID,
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Amount:      req.Amount,
		Action:      req.Action,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, rec)
}

// EarnHandler handles POST /user/{userId}/earn
func (h *HandlerProvider) EarnHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	var req earnRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	res, err := h.svc.Earn(r.Context(), ledger.EarnRequest{
		UserID:          userID,
		Amount:          req.Amount,
		Type:            req.Type,
		Action:          req.Action,
		ReferenceID:     req.ReferenceID,
		Description:     req.Description,
		Metadata:        req.Metadata,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// SpendHandler handles POST /user/{userId}/spend
func (h *HandlerProvider) SpendHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	var req spendRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	res, err := h.svc.Spend(r.Context(), ledger.SpendRequest{
		UserID:          userID,
		Amount:          req.Amount,
		Action:          req.Action,
		RecipientID:     req.RecipientID,
		ReferenceID:     req.ReferenceID,
		Description:     req.Description,
		Metadata:        req.Metadata,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// TransferHandler handles POST /user/{userId}/transfer
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return
	}

	var req transferRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, err.Error())
		return
	}

	res, err := h.svc.Transfer(r.Context(), ledger.TransferRequest{
		FromUserID:  userID,
		ToUserID:    req.RecipientID,
		Amount:      req.Amount,
		Action:      req.Action,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// PremiumAccessHandler handles GET /user/{userId}/premium/{contentId}
func (h *HandlerProvider) PremiumAccessHandler(w http.ResponseWriter, r *http.Request) {
	userID, contentID, ok := h.premiumParams(w, r)
	if !ok {
		return
	}

	has, err := h.svc.HasAccess(r.Context(), userID, contentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, accessResponse{UserID: userID, ContentID: contentID, HasAccess: has})
}

// UnlockPremiumHandler handles POST /user/{userId}/premium/{contentId}/unlock
func (h *HandlerProvider) UnlockPremiumHandler(w http.ResponseWriter, r *http.Request) {
	userID, contentID, ok := h.premiumParams(w, r)
	if !ok {
		return
	}

	res, err := h.svc.UnlockPremium(r.Context(), userID, contentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *HandlerProvider) premiumParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid userId in path")
		return "", "", false
	}

	contentID, err := pathParam(r, "contentId")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ledger.CodeValidation, "invalid contentId in path")
		return "", "", false
	}

	return userID, contentID, true
}
