package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// replay looks up an earlier row written under the same reference id. found is
// true when the call was already applied. A row with a different payload, or one
// appended by RecordTransaction without moving the balance, is an
// ErrIdempotencyConflict.
func replay(ctx context.Context, tx *sql.Tx, ns *namespace, want transactions.Record) (transactions.Record, bool, error) {
	prev, err := ns.txns.FindByReference(ctx, tx, want.UserID, want.ReferenceID)
	if errors.Is(err, transactions.ErrTransactionNotFound) {
		return transactions.Record{}, false, nil
	}

	if err != nil {
		return transactions.Record{}, false, err
	}

	if !prev.Applied {
		return transactions.Record{}, false, fmt.Errorf("%w: %s was recorded without a balance change", ErrIdempotencyConflict, want.ReferenceID)
	}

	if prev.Type != want.Type || prev.Amount != want.Amount || prev.Action != want.Action {
		return transactions.Record{}, false, fmt.Errorf("%w: %s", ErrIdempotencyConflict, want.ReferenceID)
	}

	return prev, true, nil
}

func checkVersion(acc accounts.Account, expected *int64) error {
	if expected == nil || *expected == acc.Version {
		return nil
	}

	return fmt.Errorf("%w: expected %d, current %d", ErrStaleVersion, *expected, acc.Version)
}
