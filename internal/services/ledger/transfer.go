package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
)

// Transfer moves tokens between two users (tips). Both rows and both balance
// updates commit together or not at all.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	err := req.normalize()
	if err != nil {
		return Result{}, s.fail("transfer", err, "user_id", req.FromUserID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return Result{}, s.fail("transfer", err, "user_id", req.FromUserID)
	}

	debit := transactions.Record{
		UserID:      req.FromUserID,
		RecipientID: req.ToUserID,
		Type:        string(TxTransfer),
		Amount:      -req.Amount,
		Action:      req.Action,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Applied:     true,
	}

	credit := transactions.Record{
		UserID:      req.ToUserID,
		RecipientID: req.FromUserID,
		Type:        string(TxTransfer),
		Amount:      req.Amount,
		Action:      req.Action,
		ReferenceID: counterpartReference(req.ReferenceID, req.FromUserID),
		Description: req.Description,
		Applied:     true,
	}

	var res Result

	err = s.inTx(ctx, "transfer", func(ctx context.Context, tx *sql.Tx) error {
		err := ns.accounts.Ensure(ctx, tx, req.ToUserID)
		if err != nil {
			return err
		}

		sender, err := lockPair(ctx, tx, ns, req.FromUserID, req.ToUserID)
		if err != nil {
			return err
		}

		prev, found, err := replay(ctx, tx, ns, debit)
		if err != nil {
			return err
		}

		if found {
			res = Result{Account: toAccount(sender, ns.name), TransactionID: prev.ID, Replayed: true}
			return nil
		}

		if sender.Balance < req.Amount {
			return fmt.Errorf("pre-check transfer: %w", ErrInsufficientFunds)
		}

		sender, err = ns.accounts.Debit(ctx, tx, req.FromUserID, req.Amount)
		if err != nil {
			return err
		}

		recipient, err := ns.accounts.Credit(ctx, tx, req.ToUserID, req.Amount)
		if err != nil {
			return err
		}

		out := debit
		out.BalanceAfter = sender.Balance

		out, err = ns.txns.Insert(ctx, tx, out)
		if err != nil {
			return err
		}

		in := credit
		in.BalanceAfter = recipient.Balance
		in.Metadata = map[string]any{"transferId": out.ID.String()}

		_, err = ns.txns.Insert(ctx, tx, in)
		if err != nil {
			return err
		}

		res = Result{Account: toAccount(sender, ns.name), TransactionID: out.ID}

		return nil
	})
	if err != nil {
		return Result{}, s.fail("transfer", err,
			"user_id", req.FromUserID, "recipient_id", req.ToUserID, "reference_id", req.ReferenceID)
	}

	s.log.Info("tokens transferred",
		"user_id", req.FromUserID, "recipient_id", req.ToUserID, "amount", req.Amount,
		"reference_id", req.ReferenceID, "replayed", res.Replayed)

	return res, nil
}

func counterpartReference(ref, from string) string {
	return ref + ":from:" + from
}

// lockPair locks both accounts in user id order so two opposite transfers cannot
// deadlock, and returns the payer's row. A missing payer has nothing to spend.
func lockPair(ctx context.Context, tx *sql.Tx, ns *namespace, payer, payee string) (accounts.Account, error) {
	first, second := payer, payee
	if second < first {
		first, second = second, first
	}

	var payerAcc accounts.Account

	for _, id := range []string{first, second} {
		acc, err := ns.accounts.LockAndGet(ctx, tx, id)
		if errors.Is(err, accounts.ErrAccountNotFound) && id == payer {
			return accounts.Account{}, ErrInsufficientFunds
		}

		if err != nil {
			return accounts.Account{}, fmt.Errorf("lock account %s: %w", id, err)
		}

		if id == payer {
			payerAcc = acc
		}
	}

	return payerAcc, nil
}
