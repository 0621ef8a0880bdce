package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	// mockBalance is what development builds show when the backend is unreachable.
	mockBalance = 100
)

// Balance reads the account from the first namespace that has it.
//
// A namespace without the tables or without the user is skipped. When every
// namespace misses, ErrAccountNotFound is returned. When at least one
// namespace failed outright and none had the user, the zero account is
// returned together with an ErrRemoteFailure (or a mock account in
// development builds).
func (s *Service) Balance(ctx context.Context, userID string) (Account, error) {
	err := validateUserID("userId", userID)
	if err != nil {
		return Account{UserID: userID}, s.fail("balance", err, "user_id", userID)
	}

	var remoteErr error

	for _, ns := range s.namespaces {
		var acc accounts.Account

		err := s.retry(ctx, "balance", func(ctx context.Context) error {
			var gerr error
			acc, gerr = ns.accounts.Get(ctx, userID)

			return gerr
		})

		switch {
		case err == nil:
			return toAccount(acc, ns.name), nil
		case errors.Is(err, accounts.ErrAccountNotFound):
			continue
		case pgutils.IsUndefinedTable(err):
			s.log.Debug("namespace has no balance table", "namespace", ns.name)
			continue
		default:
			s.log.Warn("balance read failed, trying next namespace", "namespace", ns.name, "user_id", userID, "error", err)
			remoteErr = errors.Join(remoteErr, fmt.Errorf("namespace %s: %w", ns.name, err))
		}
	}

	if remoteErr == nil {
		return Account{UserID: userID}, fmt.Errorf("balance: %w", ErrAccountNotFound)
	}

	if s.cfg.DevFallback {
		s.log.Warn("serving mock balance after backend failure", "user_id", userID, "error", remoteErr)

		return Account{UserID: userID, Balance: mockBalance, LifetimeEarned: mockBalance, UpdatedAt: time.Now(), Mock: true}, nil
	}

	return Account{UserID: userID}, s.fail("balance", remoteErr, "user_id", userID)
}

// Transactions lists the user's history newest first from the first namespace
// holding any of it. Pages past the end of that history come back empty; they
// never continue into an older namespace.
func (s *Service) Transactions(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	err := validateUserID("userId", userID)
	if err != nil {
		return nil, s.fail("list transactions", err, "user_id", userID)
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	if offset < 0 {
		offset = 0
	}

	var remoteErr error

	for _, ns := range s.namespaces {
		var (
			recs  []transactions.Record
			owner bool
		)

		err := s.retry(ctx, "list transactions", func(ctx context.Context) error {
			var lerr error

			recs, lerr = ns.txns.List(ctx, userID, limit, offset)
			if lerr != nil || len(recs) > 0 || offset == 0 {
				owner = len(recs) > 0
				return lerr
			}

			// Empty page further in: does this namespace hold the user's history at all?
			first, lerr := ns.txns.List(ctx, userID, 1, 0)
			owner = len(first) > 0

			return lerr
		})

		switch {
		case err == nil && owner:
			out := make([]Transaction, 0, len(recs))
			for _, r := range recs {
				out = append(out, toTransaction(r))
			}

			return out, nil
		case err == nil, pgutils.IsUndefinedTable(err):
			continue
		default:
			remoteErr = errors.Join(remoteErr, fmt.Errorf("namespace %s: %w", ns.name, err))
		}
	}

	if remoteErr != nil {
		return nil, s.fail("list transactions", remoteErr, "user_id", userID)
	}

	return []Transaction{}, nil
}
