package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/transactions"
	"github.com/google/uuid"
)

// Insert appends rec. A second row with the same (user_id, reference_id) is not
// written and reported as ErrDuplicateTransaction; ON CONFLICT keeps the
// surrounding transaction usable.
func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, rec transactions.Record) (transactions.Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return transactions.Record{}, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO `+r.table+` (id, user_id, recipient_id, amount, transaction_type, action,
			reference_id, description, metadata, balance_after, applied)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)
		ON CONFLICT (user_id, reference_id) DO NOTHING
		RETURNING created_at
	`,
		rec.ID, rec.UserID, nullable(rec.RecipientID), rec.Amount, rec.Type, rec.Action,
		nullable(rec.ReferenceID), nullable(rec.Description), metadata, rec.BalanceAfter, rec.Applied,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Record{}, transactions.ErrDuplicateTransaction
		}

		return transactions.Record{}, fmt.Errorf("insert transaction: %w", err)
	}

	return rec, nil
}
