package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// List returns the user's rows newest first. Ties on created_at fall back to id so
// paging is stable.
func (r *transactionsRepo) List(ctx context.Context, userID string, limit, offset int) ([]transactions.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM `+r.table+`
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]transactions.Record, 0, limit)

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

func (r *transactionsRepo) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM `+r.table+`
		WHERE user_id = $1 AND applied
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}

	return sum, nil
}
