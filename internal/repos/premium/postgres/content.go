package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/premium"
)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *premiumRepo) getContent(ctx context.Context, q queryRower, contentID, suffix string) (premium.Content, error) {
	var c premium.Content

	err := q.QueryRowContext(ctx, `
		SELECT id, creator_id, cost, unlock_count
		FROM `+r.content+`
		WHERE id = $1
	`+suffix, contentID).Scan(&c.ID, &c.CreatorID, &c.Cost, &c.UnlockCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return premium.Content{}, premium.ErrContentNotFound
		}

		return premium.Content{}, fmt.Errorf("get content: %w", err)
	}

	return c, nil
}

func (r *premiumRepo) GetContent(ctx context.Context, contentID string) (premium.Content, error) {
	return r.getContent(ctx, r.db, contentID, "")
}

// LockContent serialises concurrent unlocks of the same item.
func (r *premiumRepo) LockContent(ctx context.Context, tx *sql.Tx, contentID string) (premium.Content, error) {
	return r.getContent(ctx, tx, contentID, "FOR UPDATE")
}

func (r *premiumRepo) IncrementUnlockCount(ctx context.Context, tx *sql.Tx, contentID string) (int64, error) {
	var count int64

	err := tx.QueryRowContext(ctx, `
		UPDATE `+r.content+`
		SET unlock_count = unlock_count + 1
		WHERE id = $1
		RETURNING unlock_count
	`, contentID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, premium.ErrContentNotFound
		}

		return 0, fmt.Errorf("increment unlock count: %w", err)
	}

	return count, nil
}
