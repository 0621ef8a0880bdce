package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/premium"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
	"github.com/google/uuid"
)

const (
	MinPremiumCost      = 5
	MaxPremiumCost      = 1000
	CreatorSharePercent = 80
)

// UnlockResult describes the outcome of a premium unlock.
type UnlockResult struct {
	ContentID       string    `json:"contentId"`
	UserID          string    `json:"userId"`
	CreatorID       string    `json:"creatorId"`
	Cost            int64     `json:"cost"`
	CreatorPayout   int64     `json:"creatorPayout"`
	PlatformFee     int64     `json:"platformFee"`
	TransactionID   uuid.UUID `json:"transactionId,omitempty"`
	HasAccess       bool      `json:"hasAccess"`
	AlreadyUnlocked bool      `json:"alreadyUnlocked"`
	OwnContent      bool      `json:"ownContent,omitempty"`
	Account         Account   `json:"account"`
}

// SplitPremium divides cost between the creator and the platform. The creator
// share is rounded down, so the platform keeps the remainder.
func SplitPremium(cost int64) (creatorPayout, platformFee int64, err error) {
	if cost < MinPremiumCost || cost > MaxPremiumCost {
		return 0, 0, fmt.Errorf("%w: premium cost must be within [%d, %d]", ErrValidation, MinPremiumCost, MaxPremiumCost)
	}

	creatorPayout = cost * CreatorSharePercent / 100

	return creatorPayout, cost - creatorPayout, nil
}

func premiumReference(contentID string) string {
	return "premium:" + contentID
}

// UnlockPremium charges userID for permanent access to contentID and pays the
// creator their share, all inside one database transaction. A second unlock of
// the same item is a no-op reported as AlreadyUnlocked.
func (s *Service) UnlockPremium(ctx context.Context, userID, contentID string) (UnlockResult, error) {
	err := validateUnlock(userID, contentID)
	if err != nil {
		return UnlockResult{}, s.fail("unlock premium", err, "user_id", userID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return UnlockResult{}, s.fail("unlock premium", err, "user_id", userID)
	}

	var res UnlockResult

	err = s.inTx(ctx, "unlock premium", func(ctx context.Context, tx *sql.Tx) error {
		res = UnlockResult{ContentID: contentID, UserID: userID}

		content, err := ns.premium.LockContent(ctx, tx, contentID)
		if err != nil {
			return err
		}

		res.CreatorID = content.CreatorID
		res.Cost = content.Cost

		if content.CreatorID == userID {
			res.OwnContent = true
			return nil
		}

		grant, err := ns.premium.GetGrant(ctx, tx, userID, contentID)
		switch {
		case err == nil:
			res.AlreadyUnlocked = true
			res.TransactionID = grant.TransactionID
			res.CreatorPayout = grant.CreatorPayout
			res.PlatformFee = grant.PlatformFee

			return nil
		case !errors.Is(err, premium.ErrGrantNotFound):
			return err
		}

		payout, fee, err := SplitPremium(content.Cost)
		if err != nil {
			return err
		}

		res.CreatorPayout = payout
		res.PlatformFee = fee

		err = ns.accounts.Ensure(ctx, tx, content.CreatorID)
		if err != nil {
			return err
		}

		unlocker, err := lockPair(ctx, tx, ns, userID, content.CreatorID)
		if err != nil {
			return err
		}

		if unlocker.Balance < content.Cost {
			return fmt.Errorf("pre-check unlock: %w", ErrInsufficientFunds)
		}

		unlocker, err = ns.accounts.Debit(ctx, tx, userID, content.Cost)
		if err != nil {
			return err
		}

		creator, err := ns.accounts.Credit(ctx, tx, content.CreatorID, payout)
		if err != nil {
			return err
		}

		meta := map[string]any{"contentId": contentID, "creatorPayout": payout, "platformFee": fee}

		debit, err := ns.txns.Insert(ctx, tx, transactions.Record{
			UserID:       userID,
			RecipientID:  content.CreatorID,
			Type:         string(TxSpend),
			Amount:       -content.Cost,
			Action:       ActionPremiumUnlock,
			ReferenceID:  premiumReference(contentID),
			Description:  "Premium content unlock",
			Metadata:     meta,
			BalanceAfter: unlocker.Balance,
			Applied:      true,
		})
		if err != nil {
			return err
		}

		_, err = ns.txns.Insert(ctx, tx, transactions.Record{
			UserID:       content.CreatorID,
			RecipientID:  userID,
			Type:         string(TxEarn),
			Amount:       payout,
			Action:       ActionPremiumEarnings,
			ReferenceID:  counterpartReference(premiumReference(contentID), userID),
			Description:  "Premium content earnings",
			Metadata:     meta,
			BalanceAfter: creator.Balance,
			Applied:      true,
		})
		if err != nil {
			return err
		}

		_, err = ns.premium.InsertGrant(ctx, tx, premium.Grant{
			UserID:        userID,
			ContentID:     contentID,
			TransactionID: debit.ID,
			Cost:          content.Cost,
			CreatorPayout: payout,
			PlatformFee:   fee,
		})
		if err != nil {
			return err
		}

		_, err = ns.premium.IncrementUnlockCount(ctx, tx, contentID)
		if err != nil {
			return err
		}

		res.TransactionID = debit.ID
		res.Account = toAccount(unlocker, ns.name)

		return nil
	})
	if err != nil {
		return UnlockResult{}, s.fail("unlock premium", err, "user_id", userID, "content_id", contentID, "namespace", ns.name)
	}

	res.HasAccess = true

	if !res.AlreadyUnlocked && !res.OwnContent {
		s.log.Info("premium content unlocked",
			"user_id", userID, "content_id", contentID, "cost", res.Cost,
			"creator_payout", res.CreatorPayout, "platform_fee", res.PlatformFee)
	}

	if res.Account.UserID == "" {
		res.Account, err = s.Balance(ctx, userID)
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return res, err
		}

		res.Account.UserID = userID
	}

	return res, nil
}

// HasAccess reports whether userID may view contentID. Creators always see their own content.
func (s *Service) HasAccess(ctx context.Context, userID, contentID string) (bool, error) {
	err := validateUnlock(userID, contentID)
	if err != nil {
		return false, s.fail("has access", err, "user_id", userID)
	}

	ns, err := s.writeNamespace(ctx)
	if err != nil {
		return false, s.fail("has access", err, "user_id", userID)
	}

	var ok bool

	err = s.retry(ctx, "has access", func(ctx context.Context) error {
		content, err := ns.premium.GetContent(ctx, contentID)
		if err != nil {
			return err
		}

		if content.CreatorID == userID {
			ok = true
			return nil
		}

		ok, err = ns.premium.HasGrant(ctx, userID, contentID)

		return err
	})
	if err != nil {
		return false, s.fail("has access", err, "user_id", userID, "content_id", contentID)
	}

	return ok, nil
}

func validateUnlock(userID, contentID string) error {
	err := validateUserID("userId", userID)
	if err != nil {
		return err
	}

	if contentID == "" {
		return fmt.Errorf("%w: contentId required", ErrValidation)
	}

	return nil
}
