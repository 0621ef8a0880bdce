package wallet

import (
	"context"
	"errors"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

func welcomeReference(userID string) string {
	return "welcome:" + userID
}

// InitializeWallet moves the store from Uninitialized to Ready.
//
// Guests get their persisted snapshot back or, on first use, a local welcome
// credit. Signed-in users adopt the ledger's numbers as they are; a user the
// ledger has never seen is credited the welcome bonus once (the reference id
// makes that credit at most once per user). When the ledger cannot be reached
// the last persisted snapshot for this user is used and marked Offline.
func (s *Store) InitializeWallet(ctx context.Context) (Snapshot, error) {
	release, err := s.begin(false)
	if err != nil {
		return s.Snapshot(), err
	}
	defer release()

	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	if s.session.Guest() {
		s.initGuest()
		return s.Snapshot(), nil
	}

	acc, err := s.ledger.Balance(ctx, s.session.UserID)

	switch {
	case err == nil:
		s.adoptRemote(ctx, acc)
	case errors.Is(err, ledger.ErrAccountNotFound):
		err = s.grantWelcome(ctx)
		if err != nil {
			s.log.Warn("welcome bonus failed, using cached wallet", "error", err)
			s.restoreOffline()
		}
	default:
		s.log.Warn("ledger unreachable, using cached wallet", "error", err)
		s.restoreOffline()
	}

	return s.Snapshot(), nil
}

func (s *Store) initGuest() {
	if cached, ok := s.loadCached(); ok {
		s.commit(cached)
		return
	}

	now := s.now().UTC()

	s.commit(Snapshot{
		Balance:     s.welcomeBonus,
		TotalEarned: s.welcomeBonus,
		Transactions: []ledger.Transaction{{
			ID:           uuid.New(),
			Type:         ledger.TxEarn,
			Amount:       s.welcomeBonus,
			Action:       GuestWelcomeReason,
			Description:  GuestWelcomeReason,
			BalanceAfter: s.welcomeBonus,
			CreatedAt:    now,
		}},
	})

	s.log.Info("guest wallet created", "balance", s.welcomeBonus)
}

func (s *Store) adoptRemote(ctx context.Context, acc ledger.Account) {
	txs, err := s.ledger.Transactions(ctx, s.session.UserID, s.historyLimit, 0)
	if err != nil {
		s.log.Warn("load transactions", "error", err)

		txs = []ledger.Transaction{}
		if cached, ok := s.loadCached(); ok {
			txs = cached.Transactions
		}
	}

	s.commit(Snapshot{
		Balance:      acc.Balance,
		TotalEarned:  acc.LifetimeEarned,
		TotalSpent:   acc.LifetimeSpent,
		Version:      acc.Version,
		Transactions: txs,
		Mock:         acc.Mock,
	})
}

func (s *Store) grantWelcome(ctx context.Context) error {
	res, err := s.ledger.Earn(ctx, ledger.EarnRequest{
		UserID:      s.session.UserID,
		Amount:      s.welcomeBonus,
		Type:        ledger.TxEarn,
		Action:      ledger.ActionWelcomeBonus,
		ReferenceID: welcomeReference(s.session.UserID),
		Description: "Welcome bonus",
	})
	if err != nil {
		return err
	}

	s.log.Info("welcome bonus granted", "amount", s.welcomeBonus, "replayed", res.Replayed)
	s.confirm(ctx, res.Account)

	return nil
}

func (s *Store) restoreOffline() {
	snap, ok := s.loadCached()
	if !ok {
		snap = Snapshot{Transactions: []ledger.Transaction{}}
	}

	snap.Offline = true
	s.commit(snap)
}
