package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// Spend debits tokens. The funds check runs against the locked row, so a
// concurrent spend that already drained the balance wins over whatever the
// caller had cached.
func (s *Service) Spend(ctx context.Context, req SpendRequest) (Result, error) {
	err := req.normalize()
	if err != nil {
		return Result{}, s.fail("spend", err, "user_id", req.UserID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return Result{}, s.fail("spend", err, "user_id", req.UserID)
	}

	want := transactions.Record{
		UserID:      req.UserID,
		RecipientID: req.RecipientID,
		Type:        string(TxSpend),
		Amount:      -req.Amount,
		Action:      req.Action,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Metadata:    req.Metadata,
		Applied:     true,
	}

	var res Result

	err = s.inTx(ctx, "spend", func(ctx context.Context, tx *sql.Tx) error {
		acc, err := ns.accounts.LockAndGet(ctx, tx, req.UserID)
		if errors.Is(err, accounts.ErrAccountNotFound) {
			// No account means a zero balance.
			return ErrInsufficientFunds
		}

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

		if acc.Balance < req.Amount {
			return fmt.Errorf("pre-check debit: %w", ErrInsufficientFunds)
		}

		acc, err = ns.accounts.Debit(ctx, tx, req.UserID, req.Amount)
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
		return Result{}, s.fail("spend", err, "user_id", req.UserID, "reference_id", req.ReferenceID, "namespace", ns.name)
	}

	s.log.Info("tokens spent",
		"user_id", req.UserID, "amount", req.Amount, "action", req.Action,
		"reference_id", req.ReferenceID, "balance", res.Account.Balance, "replayed", res.Replayed)

	return res, nil
}
