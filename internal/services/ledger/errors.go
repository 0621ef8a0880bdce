package ledger

import (
	"errors"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/premium"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// Expected failures. Callers match them with errors.Is; none of them is retried.
var (
	ErrValidation           = errors.New("validation failed")
	ErrInsufficientFunds    = accounts.ErrInsufficientFunds
	ErrAccountNotFound      = accounts.ErrAccountNotFound
	ErrContentNotFound      = premium.ErrContentNotFound
	ErrDuplicateTransaction = transactions.ErrDuplicateTransaction
	ErrIdempotencyConflict  = errors.New("reference id reused with a different payload")
	ErrStaleVersion         = errors.New("account version changed")
)

// Unexpected failures: the backend could not be reached or answered garbage.
var (
	ErrRemoteFailure        = errors.New("ledger backend failure")
	ErrNamespaceUnavailable = errors.New("no ledger namespace available")
)

// IsExpected reports whether err is one of the domain outcomes a caller is meant to handle.
func IsExpected(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInsufficientFunds, ErrAccountNotFound, ErrContentNotFound,
		ErrDuplicateTransaction, ErrIdempotencyConflict, ErrStaleVersion,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
