package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/tokenledger/internal/config"
	"github.com/fastprodman/tokenledger/internal/infra/logging"
	"github.com/jackc/pgx/v5/pgconn"
)

// newOfflineService returns a Service without a database; runTx counts calls and fails.
func newOfflineService(t *testing.T) (*Service, *int) {
	t.Helper()

	calls := 0
	s := New(nil, config.LedgerConfig{CallTimeout: time.Second, MaxAttempts: 3}, logging.Discard())
	s.runTx = func(context.Context, func(*sql.Tx) error) error {
		calls++
		return errors.New("unexpected transaction")
	}

	return s, &calls
}

func TestService_ValidationRejectsBeforeDatabase(t *testing.T) {
	t.Parallel()

	s, calls := newOfflineService(t)
	ctx := t.Context()

	tests := []struct {
		name string
		call func() error
	}{
		{"earn_zero", func() error {
			_, err := s.Earn(ctx, EarnRequest{UserID: "u1", Amount: 0, Action: ActionDailyLogin})
			return err
		}},
		{"earn_negative", func() error {
			_, err := s.Earn(ctx, EarnRequest{UserID: "u1", Amount: -5, Action: ActionDailyLogin})
			return err
		}},
		{"earn_spend_type", func() error {
			_, err := s.Earn(ctx, EarnRequest{UserID: "u1", Amount: 5, Type: TxSpend, Action: ActionDailyLogin})
			return err
		}},
		{"earn_no_user", func() error {
			_, err := s.Earn(ctx, EarnRequest{Amount: 5, Action: ActionDailyLogin})
			return err
		}},
		{"spend_zero", func() error {
			_, err := s.Spend(ctx, SpendRequest{UserID: "u1", Amount: 0, Action: ActionTip})
			return err
		}},
		{"spend_no_action", func() error {
			_, err := s.Spend(ctx, SpendRequest{UserID: "u1", Amount: 1})
			return err
		}},
		{"transfer_self", func() error {
			_, err := s.Transfer(ctx, TransferRequest{FromUserID: "u1", ToUserID: "u1", Amount: 1})
			return err
		}},
		{"transfer_no_recipient", func() error {
			_, err := s.Transfer(ctx, TransferRequest{FromUserID: "u1", Amount: 1})
			return err
		}},
		{"record_zero", func() error {
			_, err := s.RecordTransaction(ctx, Transaction{UserID: "u1", Type: TxEarn, Action: ActionDailyLogin})
			return err
		}},
		{"record_positive_spend", func() error {
			_, err := s.RecordTransaction(ctx, Transaction{UserID: "u1", Type: TxSpend, Amount: 3, Action: ActionTip})
			return err
		}},
		{"unlock_no_content", func() error {
			_, err := s.UnlockPremium(ctx, "u1", "")
			return err
		}},
		{"balance_no_user", func() error {
			_, err := s.Balance(ctx, " ")
			return err
		}},
	}

	for _, tt := range tests {
		err := tt.call()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: want ErrValidation, got %v", tt.name, err)
		}
	}

	if *calls != 0 {
		t.Fatalf("validation failures opened %d transactions", *calls)
	}
}

func TestSplitPremium(t *testing.T) {
	t.Parallel()

	creator, platform, err := SplitPremium(100)
	if err != nil || creator != 80 || platform != 20 {
		t.Fatalf("SplitPremium(100) = %d, %d, %v", creator, platform, err)
	}

	for cost := int64(MinPremiumCost); cost <= MaxPremiumCost; cost++ {
		c, p, err := SplitPremium(cost)
		if err != nil {
			t.Fatalf("cost %d: %v", cost, err)
		}

		if c+p != cost || c != cost*80/100 || p < 0 {
			t.Fatalf("cost %d split into %d + %d", cost, c, p)
		}
	}

	for _, cost := range []int64{0, 4, 1001, -10} {
		_, _, err := SplitPremium(cost)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("cost %d: want ErrValidation, got %v", cost, err)
		}
	}
}

func TestService_Retry(t *testing.T) {
	t.Parallel()

	serialization := &pgconn.PgError{Code: "40001"}

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{name: "success_first_try", wantCalls: 1},
		{name: "transient_then_success", failures: []error{serialization}, wantCalls: 2},
		{name: "transient_exhausts_attempts", failures: []error{serialization, serialization, serialization, serialization}, wantCalls: 3, wantErr: serialization},
		{name: "expected_error_not_retried", failures: []error{ErrInsufficientFunds}, wantCalls: 1, wantErr: ErrInsufficientFunds},
		{name: "permanent_error_not_retried", failures: []error{errors.New("syntax error")}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, _ := newOfflineService(t)

			calls := 0
			err := s.retry(t.Context(), "test", func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}

				return nil
			})

			if calls != tt.wantCalls {
				t.Fatalf("want %d calls, got %d", tt.wantCalls, calls)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			if tt.wantErr == nil && len(tt.failures) == 0 && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestService_AttemptHonoursCallTimeout(t *testing.T) {
	t.Parallel()

	s := New(nil, config.LedgerConfig{CallTimeout: 20 * time.Millisecond, MaxAttempts: 1}, logging.Discard())

	err := s.retry(t.Context(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestFail_WrapsUnexpectedErrors(t *testing.T) {
	t.Parallel()

	s, _ := newOfflineService(t)

	err := s.fail("op", errors.New("boom"))
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("want ErrRemoteFailure, got %v", err)
	}

	err = s.fail("op", ErrStaleVersion)
	if errors.Is(err, ErrRemoteFailure) || !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected error must pass through untagged, got %v", err)
	}

	err = s.fail("op", ErrNamespaceUnavailable)
	if errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("namespace errors are reported as themselves, got %v", err)
	}
}
