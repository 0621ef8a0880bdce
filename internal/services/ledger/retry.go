package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
)

const retryBackoff = 50 * time.Millisecond

// retry runs fn up to MaxAttempts times, each under its own CallTimeout.
// Only transient database errors are retried; the reference id carried by every
// mutation makes a retry after an unseen commit a replay, not a second write.
func (s *Service) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := s.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.attempt(ctx, fn)
		if err == nil || IsExpected(err) || !pgutils.IsTransient(err) {
			return err
		}

		if ctx.Err() != nil || attempt == attempts {
			break
		}

		s.log.Warn("transient ledger error, retrying", "op", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return err
}

func (s *Service) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	return fn(ctx)
}

// inTx runs fn in one database transaction with the retry policy applied to the whole transaction.
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.retry(ctx, op, func(ctx context.Context) error {
		return s.runTx(ctx, func(tx *sql.Tx) error {
			return fn(ctx, tx)
		})
	})
}
