package transactions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicateTransaction = errors.New("duplicate transaction")
var ErrTransactionNotFound = errors.New("transaction not found")

// Record is one immutable token_transactions row. Amount is signed: credits are
// positive, debits negative. Applied is false for rows appended without a
// matching balance update (RecordTransaction); only applied rows add up to the balance.
type Record struct {
	ID           uuid.UUID
	UserID       string
	RecipientID  string
	Type         string
	Amount       int64
	Action       string
	ReferenceID  string
	Description  string
	Metadata     map[string]any
	BalanceAfter int64
	Applied      bool
	CreatedAt    time.Time
}

// Transactions is append-only: there is deliberately no update or delete.
type Transactions interface {
	Insert(ctx context.Context, tx *sql.Tx, rec Record) (Record, error)
	FindByReference(ctx context.Context, tx *sql.Tx, userID, referenceID string) (Record, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Record, error)
	SumByUser(ctx context.Context, userID string) (int64, error)
}
