package transactions

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

const recordColumns = `id, user_id, recipient_id, amount, transaction_type, action,
	reference_id, description, metadata, balance_after, applied, created_at`

type transactionsRepo struct {
	db    *sql.DB
	table string
}

func New(db *sql.DB, schema string) *transactionsRepo {
	return &transactionsRepo{
		db:    db,
		table: pgutils.Table(schema, "token_transactions"),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (transactions.Record, error) {
	var (
		rec         transactions.Record
		recipientID sql.NullString
		referenceID sql.NullString
		description sql.NullString
		metadata    []byte
	)

	err := row.Scan(
		&rec.ID, &rec.UserID, &recipientID, &rec.Amount, &rec.Type, &rec.Action,
		&referenceID, &description, &metadata, &rec.BalanceAfter, &rec.Applied, &rec.CreatedAt,
	)
	if err != nil {
		return transactions.Record{}, err
	}

	rec.RecipientID = recipientID.String
	rec.ReferenceID = referenceID.String
	rec.Description = description.String

	if len(metadata) > 0 {
		err = json.Unmarshal(metadata, &rec.Metadata)
		if err != nil {
			return transactions.Record{}, fmt.Errorf("decode metadata: %w", err)
		}
	}

	return rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	return string(b), nil
}
