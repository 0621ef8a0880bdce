package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// Earn credits tokens, creating the account on first use.
//
// 1) Ensure the account row exists.
// 2) Lock it (FOR UPDATE).
// 3) Return the earlier result if the reference id was already applied.
// 4) Credit balance and lifetime_earned, append the transaction.
func (s *Service) Earn(ctx context.Context, req EarnRequest) (Result, error) {
	err := req.normalize()
	if err != nil {
		return Result{}, s.fail("earn", err, "user_id", req.UserID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return Result{}, s.fail("earn", err, "user_id", req.UserID)
	}

	want := transactions.Record{
		UserID:      req.UserID,
		Type:        string(req.Type),
		Amount:      req.Amount,
		Action:      req.Action,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Metadata:    req.Metadata,
		Applied:     true,
	}

	var res Result

	err = s.inTx(ctx, "earn", func(ctx context.Context, tx *sql.Tx) error {
		err := ns.accounts.Ensure(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		acc, err := ns.accounts.LockAndGet(ctx, tx, req.UserID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		prev, found, err := replay(ctx, tx, ns, want)
		if err != nil {
			return err
		}

		if found {
			res = Result{Account: toAccount(acc, ns.name), TransactionID: prev.ID, Replayed: true}
			return nil
		}

		err = checkVersion(acc, req.ExpectedVersion)
		if err != nil {
			return err
		}

		acc, err = ns.accounts.Credit(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return err
		}

		rec := want
		rec.BalanceAfter = acc.Balance

		rec, err = ns.txns.Insert(ctx, tx, rec)
		if err != nil {
			return err
		}

		res = Result{Account: toAccount(acc, ns.name), TransactionID: rec.ID}

		return nil
	})
	if err != nil {
		return Result{}, s.fail("earn", err, "user_id", req.UserID, "reference_id", req.ReferenceID, "namespace", ns.name)
	}

	s.log.Info("tokens earned",
		"user_id", req.UserID, "amount", req.Amount, "type", req.Type, "action", req.Action,
		"reference_id", req.ReferenceID, "balance", res.Account.Balance, "replayed", res.Replayed)

	return res, nil
}
