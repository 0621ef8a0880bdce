package premium

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrContentNotFound = errors.New("premium content not found")
var ErrGrantNotFound = errors.New("access grant not found")

type Content struct {
	ID          string
	CreatorID   string
	Cost        int64
	UnlockCount int64
}

// Grant records that UserID paid for permanent access to ContentID.
type Grant struct {
	UserID        string
	ContentID     string
	TransactionID uuid.UUID
	Cost          int64
	CreatorPayout int64
	PlatformFee   int64
	CreatedAt     time.Time
}

type Premium interface {
	LockContent(ctx context.Context, tx *sql.Tx, contentID string) (Content, error)
	GetContent(ctx context.Context, contentID string) (Content, error)
	GetGrant(ctx context.Context, tx *sql.Tx, userID, contentID string) (Grant, error)
	HasGrant(ctx context.Context, userID, contentID string) (bool, error)
	InsertGrant(ctx context.Context, tx *sql.Tx, g Grant) (Grant, error)
	IncrementUnlockCount(ctx context.Context, tx *sql.Tx, contentID string) (int64, error)
}
