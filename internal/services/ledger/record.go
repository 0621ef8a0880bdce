package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/transactions"
	"github.com/google/uuid"
)

// RecordTransaction appends one immutable row without touching the balance.
// The row is stored as not applied, so it never counts towards reconciliation.
func (s *Service) RecordTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	err := validateRecord(&t)
	if err != nil {
		return Transaction{}, s.fail("record transaction", err, "user_id", t.UserID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return Transaction{}, s.fail("record transaction", err, "user_id", t.UserID)
	}

	rec := transactions.Record{
		ID:          t.ID,
		UserID:      t.UserID,
		RecipientID: t.RecipientID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Action:      t.Action,
		ReferenceID: t.ReferenceID,
		Description: t.Description,
		Metadata:    t.Metadata,
	}

	err = s.inTx(ctx, "record transaction", func(ctx context.Context, tx *sql.Tx) error {
		var ierr error
		rec, ierr = ns.txns.Insert(ctx, tx, rec)

		return ierr
	})
	if err != nil {
		return Transaction{}, s.fail("record transaction", err, "user_id", t.UserID, "reference_id", t.ReferenceID)
	}

	return toTransaction(rec), nil
}

func validateRecord(t *Transaction) error {
	err := validateUserID("userId", t.UserID)
	if err != nil {
		return err
	}

	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, t.Type)
	}

	switch {
	case t.Amount == 0:
		return fmt.Errorf("%w: amount must be non-zero", ErrValidation)
	case (t.Type == TxEarn || t.Type == TxPurchase) && t.Amount < 0:
		return fmt.Errorf("%w: %s amount must be positive", ErrValidation, t.Type)
	case t.Type == TxSpend && t.Amount > 0:
		return fmt.Errorf("%w: spend amount must be negative", ErrValidation)
	case t.Type == TxTransfer && t.RecipientID == "":
		return fmt.Errorf("%w: transfer needs a recipient", ErrValidation)
	}

	if t.Action == "" {
		return fmt.Errorf("%w: action required", ErrValidation)
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	if t.ReferenceID == "" {
		t.ReferenceID = t.ID.String()
	}

	return nil
}
