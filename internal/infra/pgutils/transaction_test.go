package pgutils_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/tokenledger/internal/infra/pgtestutil"
	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
)

func countBalances(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int

	err := db.QueryRowContext(t.Context(), `SELECT count(*) FROM tokens.user_token_balances`).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	return n
}

func insertBalance(tx *sql.Tx, userID string) error {
	_, err := tx.Exec(`INSERT INTO tokens.user_token_balances (user_id) VALUES ($1)`, userID)
	return err
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	ctx := t.Context()

	err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		return insertBalance(tx, "kept")
	})
	if err != nil {
		t.Fatalf("commit path: %v", err)
	}

	errBoom := errors.New("boom")

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		ierr := insertBalance(tx, "rolled-back")
		if ierr != nil {
			return ierr
		}

		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("want fn error, got %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic must be re-raised")
			}
		}()

		_ = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
			ierr := insertBalance(tx, "panicked")
			if ierr != nil {
				return ierr
			}

			panic("kaboom")
		})
	}()

	if got := countBalances(t, db); got != 1 {
		t.Fatalf("only the committed row must remain, got %d rows", got)
	}

	if inUse := db.Stats().InUse; inUse != 0 {
		t.Fatalf("transaction connection leaked, %d in use", inUse)
	}
}
