package premium

import (
	"database/sql"

	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/repos/premium"
)

var _ premium.Premium = (*premiumRepo)(nil)

type premiumRepo struct {
	db      *sql.DB
	content string
	unlocks string
}

func New(db *sql.DB, schema string) *premiumRepo {
	return &premiumRepo{
		db:      db,
		content: pgutils.Table(schema, "premium_content"),
		unlocks: pgutils.Table(schema, "content_unlocks"),
	}
}
