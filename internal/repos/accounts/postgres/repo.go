package accounts

import (
	"database/sql"

	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

const accountColumns = `user_id, balance, lifetime_earned, lifetime_spent, version, updated_at`

type accountsRepo struct {
	db     *sql.DB
	schema string
	table  string
}

// New returns the accounts repository for the tables living in schema.
func New(db *sql.DB, schema string) *accountsRepo {
	return &accountsRepo{
		db:     db,
		schema: schema,
		table:  pgutils.Table(schema, "user_token_balances"),
	}
}

func (r *accountsRepo) Namespace() string { return r.schema }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (accounts.Account, error) {
	var a accounts.Account

	err := row.Scan(&a.UserID, &a.Balance, &a.LifetimeEarned, &a.LifetimeSpent, &a.Version, &a.UpdatedAt)

	return a, err
}
