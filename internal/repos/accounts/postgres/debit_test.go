package accounts

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/tokenledger/internal/infra/pgtestutil"
	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

func seedAccount(t *testing.T, db *sql.DB, schema, userID string, balance int64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO `+schema+`.user_token_balances (user_id, balance, lifetime_earned)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, lifetime_earned = EXCLUDED.lifetime_earned
	`, userID, balance)
	if err != nil {
		t.Fatalf("seed account %s: %v", userID, err)
	}
}

func TestAccounts_Debit_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		seed        int64 // -1 means no account
		amount      int64
		wantBalance int64
		wantSpent   int64
		wantErr     error
	}{
		{name: "sufficient_funds", seed: 1_000, amount: 250, wantBalance: 750, wantSpent: 250},
		{name: "exact_to_zero", seed: 300, amount: 300, wantBalance: 0, wantSpent: 300},
		{name: "insufficient_funds_unchanged", seed: 200, amount: 300, wantBalance: 200, wantErr: accounts.ErrInsufficientFunds},
		{name: "missing_account_is_insufficient", seed: -1, amount: 100, wantErr: accounts.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			if tt.seed >= 0 {
				seedAccount(t, db, "tokens", "u1", tt.seed)
			}

			repo := New(db, "tokens")

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			acc, err := repo.Debit(ctx, tx, "u1", tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				_ = tx.Rollback()
			} else {
				if err != nil {
					t.Fatalf("debit: %v", err)
				}

				if acc.Balance != tt.wantBalance || acc.LifetimeSpent != tt.wantSpent {
					t.Fatalf("returned account mismatch: %+v", acc)
				}

				err = tx.Commit()
				if err != nil {
					t.Fatalf("commit: %v", err)
				}
			}

			if tt.seed < 0 {
				return
			}

			got, err := repo.Get(ctx, "u1")
			if err != nil {
				t.Fatalf("get after debit: %v", err)
			}

			if got.Balance != tt.wantBalance {
				t.Fatalf("final balance: want %d, got %d", tt.wantBalance, got.Balance)
			}
		})
	}
}

func TestAccounts_Debit_ConcurrentGuard(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedAccount(t, db, "tokens", "u1", 1_000)

	repo := New(db, "tokens")

	var (
		wg                    sync.WaitGroup
		mu                    sync.Mutex
		success, insufficient int
	)

	worker := func(name string) {
		defer wg.Done()

		ctx := t.Context()

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Errorf("[%s] begin tx: %v", name, err)
			return
		}
		defer func() { _ = tx.Rollback() }()

		_, err = repo.LockAndGet(ctx, tx, "u1")
		if err != nil {
			t.Errorf("[%s] lock: %v", name, err)
			return
		}

		_, err = repo.Debit(ctx, tx, "u1", 1_000)
		switch {
		case err == nil:
			mu.Lock()
			success++
			mu.Unlock()

			if err := tx.Commit(); err != nil {
				t.Errorf("[%s] commit: %v", name, err)
			}
		case errors.Is(err, accounts.ErrInsufficientFunds):
			mu.Lock()
			insufficient++
			mu.Unlock()
		default:
			t.Errorf("[%s] unexpected error: %v", name, err)
		}
	}

	wg.Add(2)
	go worker("A")
	go worker("B")
	wg.Wait()

	if success != 1 || insufficient != 1 {
		t.Fatalf("want 1 success and 1 insufficient, got success=%d insufficient=%d", success, insufficient)
	}
}
