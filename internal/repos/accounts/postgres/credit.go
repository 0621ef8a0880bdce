package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

func (r *accountsRepo) Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) (accounts.Account, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE `+r.table+`
		SET balance = balance + $2,
		    lifetime_earned = lifetime_earned + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		RETURNING `+accountColumns, userID, amount)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("credit account: %w", err)
	}

	return a, nil
}
