// Package wallet keeps one session's view of its token wallet. Every mutation
// is confirmed by the ledger first and only then applied locally.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
)

// CacheKey is the stable name the snapshot is persisted under.
const CacheKey = "mapchat-token-store"

const (
	DefaultWelcomeBonus = 10
	DefaultHistoryLimit = 20
	GuestWelcomeReason  = "Guest welcome"
)

// Ledger is the remote side of the wallet: *ledgerclient.Client over HTTP or
// *ledger.Service in process.
type Ledger interface {
	Balance(ctx context.Context, userID string) (ledger.Account, error)
	Transactions(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
	Earn(ctx context.Context, req ledger.EarnRequest) (ledger.Result, error)
	Spend(ctx context.Context, req ledger.SpendRequest) (ledger.Result, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Result, error)
	UnlockPremium(ctx context.Context, userID, contentID string) (ledger.UnlockResult, error)
	HasAccess(ctx context.Context, userID, contentID string) (bool, error)
}

// Cache persists snapshots between runs. *localcache.Store implements it.
type Cache interface {
	Get(key string, dst any) (bool, error)
	Put(key string, v any) error
}

// Session identifies who the wallet belongs to. An empty UserID is a guest.
type Session struct {
	UserID string
}

func (s Session) Guest() bool { return s.UserID == "" }

type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Snapshot is the wallet as last confirmed. Offline marks a snapshot restored
// from the cache because the ledger could not be reached.
type Snapshot struct {
	UserID       string
	Balance      int64
	TotalEarned  int64
	TotalSpent   int64
	Version      int64
	Transactions []ledger.Transaction
	Initialized  bool
	Offline      bool
	Mock         bool
	UpdatedAt    time.Time
}

func (s Snapshot) clone() Snapshot {
	s.Transactions = slices.Clone(s.Transactions)
	return s
}

type Store struct {
	ledger   Ledger
	cache    Cache
	session  Session
	catalog  *Catalog
	payments PaymentProcessor
	log      *slog.Logger
	now      func() time.Time

	welcomeBonus int64
	historyLimit int

	busy atomic.Bool

	mu     sync.Mutex
	state  State
	snap   Snapshot
	closed bool
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithCatalog(c *Catalog) Option {
	return func(s *Store) {
		if c != nil {
			s.catalog = c
		}
	}
}

func WithPayments(p PaymentProcessor) Option {
	return func(s *Store) { s.payments = p }
}

func WithWelcomeBonus(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.welcomeBonus = n
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a store for one session. cache may be nil, in which case nothing is persisted.
func New(l Ledger, cache Cache, session Session, opts ...Option) *Store {
	s := &Store{
		ledger:       l,
		cache:        cache,
		session:      session,
		catalog:      DefaultCatalog(),
		log:          slog.Default(),
		now:          time.Now,
		welcomeBonus: DefaultWelcomeBonus,
		historyLimit: DefaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With("component", "wallet", "user_id", session.UserID)

	return s
}

func (s *Store) Session() Session { return s.session }

func (s *Store) Catalog() *Catalog { return s.catalog }

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Snapshot returns a copy of the current wallet.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap.clone()
}

// Close persists the final snapshot. Every later call fails with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if !s.snap.Initialized {
		return nil
	}

	return s.persistLocked()
}

func (s *Store) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	return nil
}

// begin takes the in-flight guard. The returned func releases it.
func (s *Store) begin(needReady bool) (func(), error) {
	s.mu.Lock()
	closed, state := s.closed, s.state
	s.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if needReady && state != StateReady {
		return nil, ErrNotInitialized
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrOperationInFlight
	}

	return func() { s.busy.Store(false) }, nil
}

func (s *Store) requireAuth() error {
	if s.session.Guest() {
		return ErrNotAuthenticated
	}

	return nil
}

// persistLocked writes the snapshot to the cache. Failures are logged only:
// the ledger already holds the truth.
func (s *Store) persistLocked() error {
	if s.cache == nil {
		return nil
	}

	err := s.cache.Put(CacheKey, s.snap)
	if err != nil {
		s.log.Warn("persist wallet snapshot", "error", err)
		return fmt.Errorf("persist snapshot: %w", err)
	}

	return nil
}

func (s *Store) loadCached() (Snapshot, bool) {
	if s.cache == nil {
		return Snapshot{}, false
	}

	var snap Snapshot

	found, err := s.cache.Get(CacheKey, &snap)
	if err != nil {
		s.log.Warn("read cached wallet snapshot", "error", err)
		return Snapshot{}, false
	}

	if !found || !snap.Initialized || snap.UserID != s.session.UserID {
		return Snapshot{}, false
	}

	return snap, true
}

// commit replaces the snapshot and persists it. Nothing is written once the
// store is closed.
func (s *Store) commit(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitLocked(snap)
}

func (s *Store) commitLocked(snap Snapshot) {
	if s.closed {
		return
	}

	snap.UserID = s.session.UserID
	snap.Initialized = true
	snap.UpdatedAt = s.now().UTC()
	s.snap = snap
	s.state = StateReady

	_ = s.persistLocked()
}

// applyRemote adopts acc (and txs when non-nil). A read older than what is
// already cached is ignored so a slow refresh cannot roll the wallet back. The
// comparison and the commit happen under one lock.
func (s *Store) applyRemote(acc ledger.Account, txs []ledger.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap

	if cur.Initialized && !cur.Offline && acc.Version < cur.Version {
		s.log.Debug("ignoring stale balance", "have_version", cur.Version, "got_version", acc.Version)
		return false
	}

	next := Snapshot{
		Balance:      acc.Balance,
		TotalEarned:  acc.LifetimeEarned,
		TotalSpent:   acc.LifetimeSpent,
		Version:      acc.Version,
		Transactions: cur.Transactions,
		Mock:         acc.Mock,
	}

	if txs != nil {
		next.Transactions = txs
	}

	s.commitLocked(next)

	return true
}

// Refresh re-reads balance and history from the ledger.
func (s *Store) Refresh(ctx context.Context) (Snapshot, error) {
	err := s.ensureOpen()
	if err != nil {
		return s.Snapshot(), err
	}

	err = s.requireAuth()
	if err != nil {
		return s.Snapshot(), err
	}

	err = s.refresh(ctx)

	return s.Snapshot(), err
}

func (s *Store) refresh(ctx context.Context) error {
	acc, err := s.ledger.Balance(ctx, s.session.UserID)
	if err != nil {
		return fmt.Errorf("refresh balance: %w", err)
	}

	txs, err := s.ledger.Transactions(ctx, s.session.UserID, s.historyLimit, 0)
	if err != nil {
		s.log.Warn("refresh transactions", "error", err)
		txs = nil
	}

	s.applyRemote(acc, txs)

	return nil
}

// confirm applies a confirmed write. The follow-up read is preferred; when it
// fails the write's own answer is used.
func (s *Store) confirm(ctx context.Context, written ledger.Account) {
	err := s.refresh(ctx)
	if err == nil {
		return
	}

	s.log.Warn("refresh after write failed, applying write result", "error", err)
	s.applyRemote(written, nil)
}

func isRemote(err error) bool {
	return errors.Is(err, ledger.ErrRemoteFailure) || errors.Is(err, ledger.ErrNamespaceUnavailable)
}
