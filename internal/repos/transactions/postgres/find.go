package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

func (r *transactionsRepo) FindByReference(ctx context.Context, tx *sql.Tx, userID, referenceID string) (transactions.Record, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM `+r.table+`
		WHERE user_id = $1 AND reference_id = $2
	`, userID, referenceID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Record{}, transactions.ErrTransactionNotFound
		}

		return transactions.Record{}, fmt.Errorf("find transaction: %w", err)
	}

	return rec, nil
}
