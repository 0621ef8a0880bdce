package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
	"github.com/google/uuid"
)

type TxType string

const (
	TxEarn     TxType = "earn"
	TxSpend    TxType = "spend"
	TxPurchase TxType = "purchase"
	TxTransfer TxType = "transfer"
)

func (t TxType) Valid() bool {
	switch t {
	case TxEarn, TxSpend, TxPurchase, TxTransfer:
		return true
	default:
		return false
	}
}

// Well-known actions.
const (
	ActionWelcomeBonus     = "welcome_bonus"
	ActionDailyLogin       = "daily_login"
	ActionTokenPurchase    = "token_purchase"
	ActionTip              = "tip"
	ActionPremiumUnlock    = "premium_content_unlock"
	ActionPremiumEarnings  = "premium_content_earnings"
	ActionManualAdjustment = "manual_adjustment"
)

const maxUserIDLen = 128

// Account is the server-authoritative view of one user's tokens.
// Balance always equals LifetimeEarned - LifetimeSpent.
type Account struct {
	UserID         string    `json:"userId"`
	Balance        int64     `json:"balance"`
	LifetimeEarned int64     `json:"lifetimeEarned"`
	LifetimeSpent  int64     `json:"lifetimeSpent"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Namespace      string    `json:"namespace,omitempty"`
	// Mock marks a development stand-in returned instead of a real read.
	Mock bool `json:"mock,omitempty"`
}

type Transaction struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"userId"`
	RecipientID  string         `json:"recipientId,omitempty"`
	Type         TxType         `json:"type"`
	Amount       int64          `json:"amount"`
	Action       string         `json:"action"`
	ReferenceID  string         `json:"referenceId,omitempty"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	BalanceAfter int64          `json:"balanceAfter"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// EarnRequest credits tokens. Type is TxEarn (default) or TxPurchase.
type EarnRequest struct {
	UserID          string
	Amount          int64
	Type            TxType
	Action          string
	ReferenceID     string
	Description     string
	Metadata        map[string]any
	ExpectedVersion *int64
}

type SpendRequest struct {
	UserID          string
	Amount          int64
	Action          string
	RecipientID     string
	ReferenceID     string
	Description     string
	Metadata        map[string]any
	ExpectedVersion *int64
}

type TransferRequest struct {
	FromUserID  string
	ToUserID    string
	Amount      int64
	Action      string
	ReferenceID string
	Description string
}

// Result is what a balance-affecting call returns. Replayed is true when the
// reference id had already been applied and nothing new was written.
type Result struct {
	Account       Account   `json:"account"`
	TransactionID uuid.UUID `json:"transactionId"`
	Replayed      bool      `json:"replayed"`
}

func validateUserID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s required", ErrValidation, field)
	}

	if len(id) > maxUserIDLen {
		return fmt.Errorf("%w: %s too long", ErrValidation, field)
	}

	return nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}

	return nil
}

func (r *EarnRequest) normalize() error {
	err := validateUserID("userId", r.UserID)
	if err != nil {
		return err
	}

	err = validateAmount(r.Amount)
	if err != nil {
		return err
	}

	if r.Type == "" {
		r.Type = TxEarn
	}

	if r.Type != TxEarn && r.Type != TxPurchase {
		return fmt.Errorf("%w: earn type must be earn or purchase", ErrValidation)
	}

	if r.Action == "" {
		return fmt.Errorf("%w: action required", ErrValidation)
	}

	if r.ReferenceID == "" {
		r.ReferenceID = uuid.NewString()
	}

	return nil
}

func (r *SpendRequest) normalize() error {
	err := validateUserID("userId", r.UserID)
	if err != nil {
		return err
	}

	err = validateAmount(r.Amount)
	if err != nil {
		return err
	}

	if r.Action == "" {
		return fmt.Errorf("%w: action required", ErrValidation)
	}

	if r.RecipientID == r.UserID {
		return fmt.Errorf("%w: recipient must differ from spender", ErrValidation)
	}

	if r.ReferenceID == "" {
		r.ReferenceID = uuid.NewString()
	}

	return nil
}

func (r *TransferRequest) normalize() error {
	err := validateUserID("fromUserId", r.FromUserID)
	if err != nil {
		return err
	}

	err = validateUserID("recipientId", r.ToUserID)
	if err != nil {
		return err
	}

	if r.FromUserID == r.ToUserID {
		return fmt.Errorf("%w: cannot transfer to self", ErrValidation)
	}

	err = validateAmount(r.Amount)
	if err != nil {
		return err
	}

	if r.Action == "" {
		r.Action = ActionTip
	}

	if r.ReferenceID == "" {
		r.ReferenceID = uuid.NewString()
	}

	return nil
}

func toAccount(a accounts.Account, namespace string) Account {
	return Account{
		UserID:         a.UserID,
		Balance:        a.Balance,
		LifetimeEarned: a.LifetimeEarned,
		LifetimeSpent:  a.LifetimeSpent,
		Version:        a.Version,
		UpdatedAt:      a.UpdatedAt,
		Namespace:      namespace,
	}
}

func toTransaction(r transactions.Record) Transaction {
	return Transaction{
		ID:           r.ID,
		UserID:       r.UserID,
		RecipientID:  r.RecipientID,
		Type:         TxType(r.Type),
		Amount:       r.Amount,
		Action:       r.Action,
		ReferenceID:  r.ReferenceID,
		Description:  r.Description,
		Metadata:     r.Metadata,
		BalanceAfter: r.BalanceAfter,
		CreatedAt:    r.CreatedAt,
	}
}
