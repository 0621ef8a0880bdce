package wallet

import (
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
)

var (
	ErrNotAuthenticated  = errors.New("sign-in required")
	ErrOperationInFlight = errors.New("another wallet operation is in progress")
	ErrNotInitialized    = errors.New("wallet not initialized")
	ErrUnknownPackage    = errors.New("unknown token package")
	ErrPaymentRequired   = errors.New("no payment processor configured")
	ErrPaymentFailed     = errors.New("payment not completed")
	ErrClosed            = errors.New("wallet closed")
)

// Re-exported ledger outcomes so callers of the wallet need only this package.
var (
	ErrValidation        = ledger.ErrValidation
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrRemoteFailure     = ledger.ErrRemoteFailure
)

// Input errors. Both match ErrValidation.
var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be > 0", ErrValidation)
	ErrInvalidRecipient = fmt.Errorf("%w: a different recipient is required", ErrValidation)
)
