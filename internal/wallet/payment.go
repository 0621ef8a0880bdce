package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

type PaymentRequest struct {
	UserID    string
	PackageID string
	Method    string
	Price     decimal.Decimal
	Currency  string
}

type PaymentReceipt struct {
	ID         string
	Amount     decimal.Decimal
	CapturedAt time.Time
}

// PaymentProcessor captures money for a package. The wallet only reacts to
// its outcome; checkout itself lives elsewhere.
type PaymentProcessor interface {
	Capture(ctx context.Context, req PaymentRequest) (PaymentReceipt, error)
}

// ConfirmedPayments treats every capture as already paid. Used for
// development and for flows where checkout finished before the wallet is called.
type ConfirmedPayments struct{}

func (ConfirmedPayments) Capture(_ context.Context, req PaymentRequest) (PaymentReceipt, error) {
	return PaymentReceipt{ID: uuid.NewString(), Amount: req.Price, CapturedAt: time.Now().UTC()}, nil
}
