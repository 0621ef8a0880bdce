package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

func validateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	return nil
}

// EarnTokens credits amount. Guests earn locally; signed-in users only see the
// credit after the ledger confirmed it.
func (s *Store) EarnTokens(ctx context.Context, amount int64, action, description string) (Snapshot, error) {
	err := validateAmount(amount)
	if err != nil {
		return s.Snapshot(), err
	}

	if action == "" {
		return s.Snapshot(), fmt.Errorf("%w: action required", ErrValidation)
	}

	release, err := s.begin(true)
	if err != nil {
		return s.Snapshot(), err
	}
	defer release()

	if s.session.Guest() {
		s.applyLocal(ledger.TxEarn, amount, action, description)
		return s.Snapshot(), nil
	}

	res, err := s.ledger.Earn(ctx, ledger.EarnRequest{
		UserID:      s.session.UserID,
		Amount:      amount,
		Type:        ledger.TxEarn,
		Action:      action,
		ReferenceID: uuid.NewString(),
		Description: description,
	})
	if err != nil {
		return s.Snapshot(), s.opFailed("earn", err)
	}

	s.confirm(ctx, res.Account)

	return s.Snapshot(), nil
}

// SpendTokens debits amount after checking the cached balance. The ledger
// rejects the write when the cached version is stale; the wallet then reloads,
// re-checks funds and tries once more.
func (s *Store) SpendTokens(ctx context.Context, amount int64, action, description string) (Snapshot, error) {
	err := validateAmount(amount)
	if err != nil {
		return s.Snapshot(), err
	}

	if action == "" {
		return s.Snapshot(), fmt.Errorf("%w: action required", ErrValidation)
	}

	release, err := s.begin(true)
	if err != nil {
		return s.Snapshot(), err
	}
	defer release()

	snap := s.Snapshot()
	if snap.Balance < amount {
		return snap, fmt.Errorf("spend %d with balance %d: %w", amount, snap.Balance, ErrInsufficientFunds)
	}

	if s.session.Guest() {
		s.applyLocal(ledger.TxSpend, amount, action, description)
		return s.Snapshot(), nil
	}

	req := ledger.SpendRequest{
		UserID:      s.session.UserID,
		Amount:      amount,
		Action:      action,
		ReferenceID: uuid.NewString(),
		Description: description,
	}

	res, err := s.spendAt(ctx, req, snap.Version)
	if errors.Is(err, ledger.ErrStaleVersion) {
		s.log.Info("wallet out of date, reloading before retry")

		rerr := s.refresh(ctx)
		if rerr != nil {
			return s.Snapshot(), s.opFailed("spend", errors.Join(err, rerr))
		}

		snap = s.Snapshot()
		if snap.Balance < amount {
			return snap, fmt.Errorf("spend %d with balance %d: %w", amount, snap.Balance, ErrInsufficientFunds)
		}

		res, err = s.spendAt(ctx, req, snap.Version)
	}

	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			// The ledger's answer wins over the cached balance.
			_ = s.refresh(ctx)
		}

		return s.Snapshot(), s.opFailed("spend", err)
	}

	s.confirm(ctx, res.Account)

	return s.Snapshot(), nil
}

func (s *Store) spendAt(ctx context.Context, req ledger.SpendRequest, version int64) (ledger.Result, error) {
	req.ExpectedVersion = &version

	return s.ledger.Spend(ctx, req)
}

// PurchaseTokens captures the package price and credits amount plus bonus.
// Nothing is credited unless the payment went through.
func (s *Store) PurchaseTokens(ctx context.Context, packageID, paymentMethod string) (Snapshot, error) {
	err := s.requireAuth()
	if err != nil {
		return s.Snapshot(), err
	}

	pkg, ok := s.catalog.Lookup(packageID)
	if !ok {
		return s.Snapshot(), fmt.Errorf("%w: %s", ErrUnknownPackage, packageID)
	}

	if s.payments == nil {
		return s.Snapshot(), ErrPaymentRequired
	}

	release, err := s.begin(true)
	if err != nil {
		return s.Snapshot(), err
	}
	defer release()

	receipt, err := s.payments.Capture(ctx, PaymentRequest{
		UserID:    s.session.UserID,
		PackageID: pkg.ID,
		Method:    paymentMethod,
		Price:     pkg.Price,
		Currency:  DefaultCurrency,
	})
	if err != nil {
		s.log.Warn("payment capture failed", "package_id", pkg.ID, "error", err)
		return s.Snapshot(), fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	res, err := s.ledger.Earn(ctx, ledger.EarnRequest{
		UserID:      s.session.UserID,
		Amount:      pkg.Tokens(),
		Type:        ledger.TxPurchase,
		Action:      ledger.ActionTokenPurchase,
		ReferenceID: "purchase:" + receipt.ID,
		Description: fmt.Sprintf("Purchased %s package", pkg.Name),
		Metadata: map[string]any{
			"packageId":     pkg.ID,
			"paymentMethod": paymentMethod,
			"paymentId":     receipt.ID,
			"price":         pkg.Price.StringFixed(2),
			"currency":      DefaultCurrency,
		},
	})
	if err != nil {
		// Paid but not credited: the receipt id is the reference, so a retry with it is safe.
		s.log.Error("purchase credit failed after payment", "package_id", pkg.ID, "payment_id", receipt.ID, "error", err)
		return s.Snapshot(), s.opFailed("purchase", err)
	}

	s.log.Info("tokens purchased", "package_id", pkg.ID, "tokens", pkg.Tokens(), "payment_id", receipt.ID)
	s.confirm(ctx, res.Account)

	return s.Snapshot(), nil
}

// TipCreator moves amount to recipientID.
func (s *Store) TipCreator(ctx context.Context, recipientID string, amount int64) (Snapshot, error) {
	err := s.requireAuth()
	if err != nil {
		return s.Snapshot(), err
	}

	err = validateAmount(amount)
	if err != nil {
		return s.Snapshot(), err
	}

	if recipientID == "" || recipientID == s.session.UserID {
		return s.Snapshot(), ErrInvalidRecipient
	}

	release, err := s.begin(true)
	if err != nil {
		return s.Snapshot(), err
	}
	defer release()

	snap := s.Snapshot()
	if snap.Balance < amount {
		return snap, fmt.Errorf("tip %d with balance %d: %w", amount, snap.Balance, ErrInsufficientFunds)
	}

	res, err := s.ledger.Transfer(ctx, ledger.TransferRequest{
		FromUserID:  s.session.UserID,
		ToUserID:    recipientID,
		Amount:      amount,
		Action:      ledger.ActionTip,
		ReferenceID: uuid.NewString(),
		Description: "Tip",
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			_ = s.refresh(ctx)
		}

		return s.Snapshot(), s.opFailed("tip", err)
	}

	s.confirm(ctx, res.Account)

	return s.Snapshot(), nil
}

// UnlockPremium asks the ledger to unlock contentID as one atomic call.
// Unlocking something already owned is a no-op with AlreadyUnlocked set.
func (s *Store) UnlockPremium(ctx context.Context, contentID string) (ledger.UnlockResult, error) {
	err := s.requireAuth()
	if err != nil {
		return ledger.UnlockResult{}, err
	}

	if contentID == "" {
		return ledger.UnlockResult{}, fmt.Errorf("%w: content id required", ErrValidation)
	}

	release, err := s.begin(true)
	if err != nil {
		return ledger.UnlockResult{}, err
	}
	defer release()

	res, err := s.ledger.UnlockPremium(ctx, s.session.UserID, contentID)
	if err != nil {
		return ledger.UnlockResult{}, s.opFailed("unlock", err)
	}

	if !res.AlreadyUnlocked && !res.OwnContent {
		s.confirm(ctx, res.Account)
	}

	return res, nil
}

func (s *Store) HasAccess(ctx context.Context, contentID string) (bool, error) {
	err := s.ensureOpen()
	if err != nil {
		return false, err
	}

	err = s.requireAuth()
	if err != nil {
		return false, err
	}

	ok, err := s.ledger.HasAccess(ctx, s.session.UserID, contentID)
	if err != nil {
		return false, s.opFailed("has access", err)
	}

	return ok, nil
}

// applyLocal mutates a guest wallet. Guests have no ledger account.
func (s *Store) applyLocal(typ ledger.TxType, amount int64, action, description string) {
	snap := s.Snapshot()

	signed := amount
	if typ == ledger.TxSpend {
		signed = -amount
		snap.TotalSpent += amount
	} else {
		snap.TotalEarned += amount
	}

	snap.Balance += signed
	snap.Version++

	tx := ledger.Transaction{
		ID:           uuid.New(),
		Type:         typ,
		Amount:       signed,
		Action:       action,
		Description:  description,
		BalanceAfter: snap.Balance,
		CreatedAt:    s.now().UTC(),
	}

	snap.Transactions = append([]ledger.Transaction{tx}, snap.Transactions...)
	if len(snap.Transactions) > s.historyLimit {
		snap.Transactions = snap.Transactions[:s.historyLimit]
	}

	s.commit(snap)
}

// opFailed logs a rejected or failed ledger call. The snapshot is left as it was.
func (s *Store) opFailed(op string, err error) error {
	if isRemote(err) {
		s.log.Error("wallet operation failed", "op", op, "error", err)
	} else {
		s.log.Warn("wallet operation rejected", "op", op, "error", err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
