package wallet

import (
	"errors"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidAmount, "Please enter an amount greater than zero."},
	{ErrInvalidRecipient, "Please choose someone else to tip."},
	{ErrValidation, "Please check your input and try again."},
	{ErrInsufficientFunds, "Not enough tokens. Please check your balance and try again."},
	{ErrNotAuthenticated, "Please sign in to continue."},
	{ErrOperationInFlight, "Please wait for the current operation to finish."},
	{ErrNotInitialized, "Your wallet is still loading."},
	{ErrUnknownPackage, "That token package is not available."},
	{ErrPaymentRequired, "Purchases are not available right now."},
	{ErrPaymentFailed, "Payment was not completed. You have not been charged."},
	{ErrClosed, "Your session has ended. Please sign in again."},
	{ledger.ErrStaleVersion, "Your balance changed in the meantime. Please try again."},
	{ledger.ErrContentNotFound, "This content is no longer available."},
	{ledger.ErrIdempotencyConflict, "This request was already processed."},
}

// UserMessage turns err into a short sentence fit for showing to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}

	return "Something went wrong. Please try again."
}
