package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

// memLedger is an in-memory ledger with per-method call counters.
type memLedger struct {
	mu       sync.Mutex
	accounts map[string]*ledger.Account
	history  map[string][]ledger.Transaction
	refs     map[string]ledger.Result
	calls    map[string]int

	balanceErr error
	earnErr    error
	// staleOnce makes the next Spend fail with ErrStaleVersion after bumping the version.
	staleOnce bool
	// spendGate, when set, blocks Spend until it is closed.
	spendGate chan struct{}
	spendSeen chan struct{}
	unlocked  map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: map[string]*ledger.Account{},
		history:  map[string][]ledger.Transaction{},
		refs:     map[string]ledger.Result{},
		calls:    map[string]int{},
		unlocked: map[string]bool{},
	}
}

func (m *memLedger) seed(userID string, balance, earned, spent, version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[userID] = &ledger.Account{
		UserID: userID, Balance: balance, LifetimeEarned: earned, LifetimeSpent: spent, Version: version,
	}
}

func (m *memLedger) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[name]
}

func (m *memLedger) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		n += c
	}

	return n
}

func (m *memLedger) Balance(_ context.Context, userID string) (ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["balance"]++

	if m.balanceErr != nil {
		return ledger.Account{UserID: userID}, m.balanceErr
	}

	acc, ok := m.accounts[userID]
	if !ok {
		return ledger.Account{UserID: userID}, fmt.Errorf("balance: %w", ledger.ErrAccountNotFound)
	}

	return *acc, nil
}

func (m *memLedger) Transactions(_ context.Context, userID string, limit, _ int) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["transactions"]++

	h := m.history[userID]
	if len(h) > limit {
		h = h[:limit]
	}

	out := make([]ledger.Transaction, len(h))
	copy(out, h)

	return out, nil
}

func (m *memLedger) apply(userID string, typ ledger.TxType, amount int64, action, ref string, meta map[string]any) ledger.Result {
	acc, ok := m.accounts[userID]
	if !ok {
		acc = &ledger.Account{UserID: userID}
		m.accounts[userID] = acc
	}

	acc.Balance += amount
	if amount > 0 {
		acc.LifetimeEarned += amount
	} else {
		acc.LifetimeSpent -= amount
	}

	acc.Version++
	acc.UpdatedAt = time.Now()

	tx := ledger.Transaction{
		ID: uuid.New(), UserID: userID, Type: typ, Amount: amount, Action: action,
		ReferenceID: ref, Metadata: meta, BalanceAfter: acc.Balance, CreatedAt: time.Now(),
	}
	m.history[userID] = append([]ledger.Transaction{tx}, m.history[userID]...)

	res := ledger.Result{Account: *acc, TransactionID: tx.ID}
	m.refs[userID+"|"+ref] = res

	return res
}

func (m *memLedger) Earn(_ context.Context, req ledger.EarnRequest) (ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["earn"]++

	if m.earnErr != nil {
		return ledger.Result{}, m.earnErr
	}

	if req.Amount <= 0 {
		return ledger.Result{}, ledger.ErrValidation
	}

	if prev, ok := m.refs[req.UserID+"|"+req.ReferenceID]; ok {
		prev.Replayed = true
		prev.Account = *m.accounts[req.UserID]

		return prev, nil
	}

	typ := req.Type
	if typ == "" {
		typ = ledger.TxEarn
	}

	return m.apply(req.UserID, typ, req.Amount, req.Action, req.ReferenceID, req.Metadata), nil
}

func (m *memLedger) Spend(_ context.Context, req ledger.SpendRequest) (ledger.Result, error) {
	m.mu.Lock()
	m.calls["spend"]++
	gate, seen := m.spendGate, m.spendSeen
	m.mu.Unlock()

	if seen != nil {
		seen <- struct{}{}
	}

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[req.UserID]
	if !ok {
		return ledger.Result{}, ledger.ErrInsufficientFunds
	}

	if m.staleOnce {
		m.staleOnce = false
		acc.Version++

		return ledger.Result{}, ledger.ErrStaleVersion
	}

	if req.ExpectedVersion != nil && *req.ExpectedVersion != acc.Version {
		return ledger.Result{}, ledger.ErrStaleVersion
	}

	if acc.Balance < req.Amount {
		return ledger.Result{}, ledger.ErrInsufficientFunds
	}

	return m.apply(req.UserID, ledger.TxSpend, -req.Amount, req.Action, req.ReferenceID, req.Metadata), nil
}

func (m *memLedger) Transfer(_ context.Context, req ledger.TransferRequest) (ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["transfer"]++

	acc, ok := m.accounts[req.FromUserID]
	if !ok || acc.Balance < req.Amount {
		return ledger.Result{}, ledger.ErrInsufficientFunds
	}

	m.apply(req.ToUserID, ledger.TxTransfer, req.Amount, req.Action, req.ReferenceID+":in", nil)

	return m.apply(req.FromUserID, ledger.TxTransfer, -req.Amount, req.Action, req.ReferenceID, nil), nil
}

func (m *memLedger) UnlockPremium(_ context.Context, userID, contentID string) (ledger.UnlockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["unlock"]++

	const cost = 25

	key := userID + "|" + contentID
	if m.unlocked[key] {
		return ledger.UnlockResult{ContentID: contentID, UserID: userID, HasAccess: true, Cost: cost, AlreadyUnlocked: true, Account: *m.accounts[userID]}, nil
	}

	acc, ok := m.accounts[userID]
	if !ok || acc.Balance < cost {
		return ledger.UnlockResult{}, ledger.ErrInsufficientFunds
	}

	payout, fee, _ := ledger.SplitPremium(cost)
	res := m.apply(userID, ledger.TxSpend, -cost, ledger.ActionPremiumUnlock, "premium:"+contentID, nil)
	m.unlocked[key] = true

	return ledger.UnlockResult{ContentID: contentID, UserID: userID, HasAccess: true, Cost: cost, CreatorPayout: payout, PlatformFee: fee, Account: res.Account}, nil
}

func (m *memLedger) HasAccess(_ context.Context, userID, contentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["has_access"]++

	return m.unlocked[userID+"|"+contentID], nil
}

// memCache is a Cache that keeps values in memory, round-tripping nothing.
type memCache struct {
	mu   sync.Mutex
	data map[string]Snapshot
	puts int
}

func newMemCache() *memCache { return &memCache{data: map[string]Snapshot{}} }

func (c *memCache) Get(key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[key]
	if !ok {
		return false, nil
	}

	*(dst.(*Snapshot)) = v.clone()

	return true, nil
}

func (c *memCache) Put(key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	c.data[key] = v.(Snapshot).clone()

	return nil
}
