package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fastprodman/tokenledger/internal/wallet"
)

const defaultPaymentMethod = "card"

type command struct {
	name string
	args []string
}

// arity is the accepted argument count range per command.
var arity = map[string][2]int{
	"balance":  {0, 0},
	"history":  {0, 0},
	"earn":     {2, 3},
	"spend":    {2, 3},
	"packages": {0, 0},
	"buy":      {1, 2},
	"tip":      {2, 2},
	"unlock":   {1, 1},
	"access":   {1, 1},
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "balance"}, nil
	}

	name := strings.ToLower(args[0])
	rest := args[1:]

	bounds, ok := arity[name]
	if !ok {
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	if len(rest) < bounds[0] || len(rest) > bounds[1] {
		return command{}, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", errUsage, name, bounds[0], bounds[1], len(rest))
	}

	switch name {
	case "earn", "spend":
		_, err := parseAmount(rest[0])
		if err != nil {
			return command{}, err
		}
	case "tip":
		_, err := parseAmount(rest[1])
		if err != nil {
			return command{}, err
		}
	}

	return command{name: name, args: rest}, nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a whole number", errUsage, s)
	}

	return n, nil
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}

	return def
}

func (c command) exec(ctx context.Context, store *wallet.Store, out io.Writer) error {
	switch c.name {
	case "balance":
		printBalance(out, store.Snapshot())
	case "history":
		printHistory(out, store.Snapshot())
	case "packages":
		printPackages(out, store.Catalog())
	case "earn":
		amount, _ := parseAmount(c.args[0])

		snap, err := store.EarnTokens(ctx, amount, c.args[1], argOr(c.args, 2, ""))
		if err != nil {
			return err
		}

		printBalance(out, snap)
	case "spend":
		amount, _ := parseAmount(c.args[0])

		snap, err := store.SpendTokens(ctx, amount, c.args[1], argOr(c.args, 2, ""))
		if err != nil {
			return err
		}

		printBalance(out, snap)
	case "buy":
		snap, err := store.PurchaseTokens(ctx, c.args[0], argOr(c.args, 1, defaultPaymentMethod))
		if err != nil {
			return err
		}

		printBalance(out, snap)
	case "tip":
		amount, _ := parseAmount(c.args[1])

		snap, err := store.TipCreator(ctx, c.args[0], amount)
		if err != nil {
			return err
		}

		printBalance(out, snap)
	case "unlock":
		res, err := store.UnlockPremium(ctx, c.args[0])
		if err != nil {
			return err
		}

		switch {
		case res.OwnContent:
			fmt.Fprintf(out, "%s is your own content\n", res.ContentID)
		case res.AlreadyUnlocked:
			fmt.Fprintf(out, "%s was already unlocked\n", res.ContentID)
		default:
			fmt.Fprintf(out, "unlocked %s for %d tokens\n", res.ContentID, res.Cost)
		}

		printBalance(out, store.Snapshot())
	case "access":
		ok, err := store.HasAccess(ctx, c.args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "access to %s: %t\n", c.args[0], ok)
	}

	return nil
}

func printBalance(out io.Writer, snap wallet.Snapshot) {
	who := snap.UserID
	if who == "" {
		who = "guest"
	}

	fmt.Fprintf(out, "%s: %d tokens (earned %d, spent %d)\n", who, snap.Balance, snap.TotalEarned, snap.TotalSpent)
}

func printHistory(out io.Writer, snap wallet.Snapshot) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tAMOUNT\tACTION\tBALANCE")

	for _, t := range snap.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\t%d\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Type, t.Amount, t.Action, t.BalanceAfter)
	}

	_ = tw.Flush()
}

func printPackages(out io.Writer, c *wallet.Catalog) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTOKENS\tPRICE")

	for _, p := range c.Packages() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s %s\n", p.ID, p.Name, p.Tokens(), p.Price.StringFixed(2), wallet.DefaultCurrency)
	}

	_ = tw.Flush()
}
