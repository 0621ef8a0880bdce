package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastprodman/tokenledger/internal/config"
	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/tokenledger/internal/repos/accounts/postgres"
	"github.com/fastprodman/tokenledger/internal/repos/premium"
	pgpremium "github.com/fastprodman/tokenledger/internal/repos/premium/postgres"
	"github.com/fastprodman/tokenledger/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/tokenledger/internal/repos/transactions/postgres"
)

var defaultNamespaces = []string{"tokens", "public"}

// namespace bundles the repositories of one schema.
type namespace struct {
	name     string
	accounts accounts.Accounts
	txns     transactions.Transactions
	premium  premium.Premium
}

// Service is the single point of contact with the ledger tables. Every
// balance-affecting operation runs as one database transaction.
type Service struct {
	db         *sql.DB
	namespaces []namespace
	cfg        config.LedgerConfig
	log        *slog.Logger

	// runTx is pgutils.WithTx bound to db; tests swap it to observe calls.
	runTx func(ctx context.Context, fn func(*sql.Tx) error) error

	resolveMu sync.Mutex
	writeNS   *namespace
}

func New(db *sql.DB, cfg config.LedgerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	names := cfg.Namespaces
	if len(names) == 0 {
		names = defaultNamespaces
	}

	nss := make([]namespace, 0, len(names))
	for _, name := range names {
		nss = append(nss, namespace{
			name:     name,
			accounts: pgaccounts.New(db, name),
			txns:     pgtransactions.New(db, name),
			premium:  pgpremium.New(db, name),
		})
	}

	return &Service{
		db:         db,
		namespaces: nss,
		cfg:        cfg,
		log:        logger.With("component", "ledger"),
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgutils.WithTx(ctx, db, fn)
		},
	}
}

// writeNamespace returns the first configured namespace whose tables exist.
// The answer is cached for the lifetime of the Service; probe errors are not.
func (s *Service) writeNamespace(ctx context.Context) (*namespace, error) {
	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()

	if s.writeNS != nil {
		return s.writeNS, nil
	}

	for i := range s.namespaces {
		ns := &s.namespaces[i]

		var exists bool

		err := s.retry(ctx, "probe namespace", func(ctx context.Context) error {
			var perr error
			exists, perr = ns.accounts.TablesExist(ctx)

			return perr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFailure, err)
		}

		if exists {
			s.writeNS = ns
			s.log.Info("ledger namespace resolved", "namespace", ns.name)

			return ns, nil
		}

		s.log.Warn("ledger namespace has no tables, trying next", "namespace", ns.name)
	}

	s.log.Error("no ledger namespace available", "namespaces", s.namespaceNames())

	return nil, ErrNamespaceUnavailable
}

func (s *Service) namespaceNames() []string {
	out := make([]string, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		out = append(out, ns.name)
	}

	return out
}

// fail logs err at a level matching its kind and tags unexpected errors with ErrRemoteFailure.
func (s *Service) fail(op string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}

	attrs = append(attrs, "op", op, "error", err)

	if IsExpected(err) {
		s.log.Warn("ledger call rejected", attrs...)

		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Error("ledger call failed", attrs...)

	if errors.Is(err, ErrRemoteFailure) || errors.Is(err, ErrNamespaceUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrRemoteFailure, err)
}
