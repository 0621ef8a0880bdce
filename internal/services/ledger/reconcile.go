package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/tokenledger/internal/repos/accounts"
)

const reconcilePageSize = 500

// Discrepancy is an account whose stored numbers disagree with its history.
type Discrepancy struct {
	Namespace      string `json:"namespace"`
	UserID         string `json:"userId"`
	Balance        int64  `json:"balance"`
	LifetimeEarned int64  `json:"lifetimeEarned"`
	LifetimeSpent  int64  `json:"lifetimeSpent"`
	TransactionSum int64  `json:"transactionSum"`
}

// Reconcile walks every account of every namespace that has tables and reports
// those where balance differs from earned minus spent or from the sum of
// applied transactions. It never corrects anything.
func (s *Service) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	var out []Discrepancy

	checked := 0

	for _, ns := range s.namespaces {
		exists, err := ns.accounts.TablesExist(ctx)
		if err != nil {
			return out, s.fail("reconcile", fmt.Errorf("probe namespace %s: %w", ns.name, err))
		}

		if !exists {
			continue
		}

		after := ""

		for {
			var page []accounts.Account

			err := s.retry(ctx, "reconcile", func(ctx context.Context) error {
				var lerr error
				page, lerr = ns.accounts.List(ctx, after, reconcilePageSize)

				return lerr
			})
			if err != nil {
				return out, s.fail("reconcile", err, "namespace", ns.name)
			}

			for _, acc := range page {
				var sum int64

				err := s.retry(ctx, "reconcile", func(ctx context.Context) error {
					var serr error
					sum, serr = ns.txns.SumByUser(ctx, acc.UserID)

					return serr
				})
				if err != nil {
					return out, s.fail("reconcile", err, "namespace", ns.name, "user_id", acc.UserID)
				}

				checked++

				if acc.Balance != acc.LifetimeEarned-acc.LifetimeSpent || acc.Balance != sum {
					d := Discrepancy{
						Namespace:      ns.name,
						UserID:         acc.UserID,
						Balance:        acc.Balance,
						LifetimeEarned: acc.LifetimeEarned,
						LifetimeSpent:  acc.LifetimeSpent,
						TransactionSum: sum,
					}
					s.log.Warn("ledger discrepancy", "namespace", ns.name, "user_id", acc.UserID,
						"balance", acc.Balance, "earned", acc.LifetimeEarned, "spent", acc.LifetimeSpent, "sum", sum)

					out = append(out, d)
				}
			}

			if len(page) < reconcilePageSize {
				break
			}

			after = page[len(page)-1].UserID
		}
	}

	s.log.Info("reconcile finished", "accounts", checked, "discrepancies", len(out))

	return out, nil
}
