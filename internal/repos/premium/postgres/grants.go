package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/premium"
)

func (r *premiumRepo) GetGrant(ctx context.Context, tx *sql.Tx, userID, contentID string) (premium.Grant, error) {
	var g premium.Grant

	err := tx.QueryRowContext(ctx, `
		SELECT user_id, content_id, transaction_id, cost, creator_payout, platform_fee, created_at
		FROM `+r.unlocks+`
		WHERE user_id = $1 AND content_id = $2
	`, userID, contentID).Scan(
		&g.UserID, &g.ContentID, &g.TransactionID, &g.Cost, &g.CreatorPayout, &g.PlatformFee, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return premium.Grant{}, premium.ErrGrantNotFound
		}

		return premium.Grant{}, fmt.Errorf("get grant: %w", err)
	}

	return g, nil
}

func (r *premiumRepo) HasGrant(ctx context.Context, userID, contentID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM `+r.unlocks+` WHERE user_id = $1 AND content_id = $2)
	`, userID, contentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}

	return exists, nil
}

func (r *premiumRepo) InsertGrant(ctx context.Context, tx *sql.Tx, g premium.Grant) (premium.Grant, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO `+r.unlocks+` (user_id, content_id, transaction_id, cost, creator_payout, platform_fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, g.UserID, g.ContentID, g.TransactionID, g.Cost, g.CreatorPayout, g.PlatformFee).Scan(&g.CreatedAt)
	if err != nil {
		return premium.Grant{}, fmt.Errorf("insert grant: %w", err)
	}

	return g, nil
}
