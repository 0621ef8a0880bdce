package ledger

import "errors"

// Stable machine codes carried in HTTP error bodies.
const (
	CodeValidation           = "validation_failed"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeAccountNotFound      = "account_not_found"
	CodeContentNotFound      = "content_not_found"
	CodeDuplicateTransaction = "duplicate_transaction"
	CodeIdempotencyConflict  = "idempotency_conflict"
	CodeStaleVersion         = "stale_version"
	CodeNamespaceUnavailable = "namespace_unavailable"
	CodeInternal             = "internal_error"
)

var codeTable = []struct {
	code string
	err  error
}{
	{CodeValidation, ErrValidation},
	{CodeInsufficientFunds, ErrInsufficientFunds},
	{CodeAccountNotFound, ErrAccountNotFound},
	{CodeContentNotFound, ErrContentNotFound},
	{CodeDuplicateTransaction, ErrDuplicateTransaction},
	{CodeIdempotencyConflict, ErrIdempotencyConflict},
	{CodeStaleVersion, ErrStaleVersion},
	{CodeNamespaceUnavailable, ErrNamespaceUnavailable},
}

// ErrorCode returns the machine code for err, CodeInternal when err is not a known outcome.
func ErrorCode(err error) string {
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes map to ErrRemoteFailure.
func ErrorForCode(code string) error {
	for _, c := range codeTable {
		if c.code == code {
			return c.err
		}
	}

	return ErrRemoteFailure
}
