package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrAccountNotFound = errors.New("account not found")

// Account mirrors one user_token_balances row.
type Account struct {
	UserID         string
	Balance        int64
	LifetimeEarned int64
	LifetimeSpent  int64
	Version        int64
	UpdatedAt      time.Time
}

type Accounts interface {
	Namespace() string
	TablesExist(ctx context.Context) (bool, error)
	Get(ctx context.Context, userID string) (Account, error)
	Ensure(ctx context.Context, tx *sql.Tx, userID string) error
	LockAndGet(ctx context.Context, tx *sql.Tx, userID string) (Account, error)
	Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) (Account, error)
	Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) (Account, error)
	List(ctx context.Context, afterUserID string, limit int) ([]Account, error)
}
