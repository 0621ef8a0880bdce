package accounts

import (
	"context"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

// List pages through accounts ordered by user id, starting after afterUserID.
func (r *accountsRepo) List(ctx context.Context, afterUserID string, limit int) ([]accounts.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM `+r.table+`
		WHERE user_id > $1
		ORDER BY user_id
		LIMIT $2
	`, afterUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]accounts.Account, 0, limit)

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		out = append(out, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}
