package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

// Debit subtracts amount only while the balance covers it; a missing row or a short
// balance both surface as ErrInsufficientFunds.
func (r *accountsRepo) Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) (accounts.Account, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE `+r.table+`
		SET balance = balance - $2,
		    lifetime_spent = lifetime_spent + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		  AND balance >= $2
		RETURNING `+accountColumns, userID, amount)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrInsufficientFunds
		}

		return accounts.Account{}, fmt.Errorf("debit account: %w", err)
	}

	return a, nil
}
