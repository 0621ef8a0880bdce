package accounts

import (
	"context"
	"database/sql"
	"fmt"
)

// Ensure creates a zero account for userID when none exists. Accounts are created
// implicitly by the first earn, spend or purchase.
func (r *accountsRepo) Ensure(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO `+r.table+` (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	return nil
}
