// wallet drives one token wallet session against the ledger API.
//
// Usage:
//
//	wallet [flags] <command> [args]
//
// The session starts with InitializeWallet, runs the command and persists the
// snapshot to the local cache on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/fastprodman/tokenledger/internal/config"
	"github.com/fastprodman/tokenledger/internal/infra/localcache"
	"github.com/fastprodman/tokenledger/internal/infra/logging"
	"github.com/fastprodman/tokenledger/internal/ledgerclient"
	"github.com/fastprodman/tokenledger/internal/wallet"
	"github.com/fastprodman/tokenledger/pkg/envconf"
)

type walletConfig struct {
	AppEnv   string              `envconfig:"APP_ENV" default:"production"`
	LogLevel slog.Level          `envconfig:"APP_LOG_LEVEL" default:"WARN"`
	UserID   string              `envconfig:"WALLET_USER_ID"`
	Wallet   config.WalletConfig `envconfig:"WALLET"`
}

// errUsage marks a command line that could not be understood.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}

		fmt.Fprintf(os.Stderr, "%s\n", wallet.UserMessage(err))
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (retErr error) {
	cfg := new(walletConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	flags := pflag.NewFlagSet("wallet", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&cfg.UserID, "user", "u", cfg.UserID, "user id; empty runs a guest session")
	flags.StringVar(&cfg.Wallet.APIURL, "api", cfg.Wallet.APIURL, "ledger API base URL")
	flags.StringVar(&cfg.Wallet.CachePath, "cache", cfg.Wallet.CachePath, "path of the local wallet cache")
	flags.StringVar(&cfg.Wallet.CatalogPath, "catalog", cfg.Wallet.CatalogPath, "YAML token package catalog")
	flags.DurationVar(&cfg.Wallet.RequestTimeout, "timeout", cfg.Wallet.RequestTimeout, "per request timeout")
	flags.BoolP("verbose", "v", false, "log debug output to stderr")
	flags.Usage = func() { printUsage(stderr, flags) }

	err = flags.Parse(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return fmt.Errorf("%w: %w", errUsage, err)
	}

	level := cfg.LogLevel
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	logger := logging.Setup(stderr, level, "text")

	cmd, err := parseCommand(flags.Args())
	if err != nil {
		printUsage(stderr, flags)
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		cerr := store.Close()
		if cerr != nil {
			retErr = errors.Join(retErr, fmt.Errorf("persist wallet: %w", cerr))
		}
	}()

	snap, err := store.InitializeWallet(ctx)
	if err != nil {
		return fmt.Errorf("initialize wallet: %w", err)
	}

	if snap.Offline {
		fmt.Fprintln(stderr, "ledger unreachable, showing the last saved wallet")
	}

	return cmd.exec(ctx, store, stdout)
}

func openStore(cfg *walletConfig, logger *slog.Logger) (*wallet.Store, error) {
	cache, err := localcache.Open(cfg.Wallet.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	client := ledgerclient.New(cfg.Wallet.APIURL,
		ledgerclient.WithTimeout(cfg.Wallet.RequestTimeout),
		ledgerclient.WithMaxAttempts(cfg.Wallet.MaxAttempts),
		ledgerclient.WithLogger(logger),
	)

	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithWelcomeBonus(cfg.Wallet.WelcomeBonus),
	}

	if p := paymentProcessor(cfg.AppEnv); p != nil {
		opts = append(opts, wallet.WithPayments(p))
	}

	if cfg.Wallet.CatalogPath != "" {
		catalog, err := wallet.LoadCatalog(cfg.Wallet.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}

		opts = append(opts, wallet.WithCatalog(catalog))
	}

	return wallet.New(client, cache, wallet.Session{UserID: cfg.UserID}, opts...), nil
}

// paymentProcessor returns the processor purchases are captured with. There is
// no real checkout wired into the CLI, so production builds get none and every
// purchase fails with wallet.ErrPaymentRequired.
func paymentProcessor(appEnv string) wallet.PaymentProcessor {
	if config.IsProduction(appEnv) {
		return nil
	}

	return wallet.ConfirmedPayments{}
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprint(w, `Usage: wallet [flags] <command> [args]

Commands:
  balance                        show balance and lifetime totals
  history                        list recent transactions
  earn <amount> <action> [desc]  credit tokens for an action
  spend <amount> <action> [desc] debit tokens for an action
  packages                       list purchasable token packages
  buy <package> [method]         purchase a token package
  tip <recipient> <amount>       transfer tokens to a creator
  unlock <content>               unlock premium content
  access <content>               check premium access

Flags:
`)
	fmt.Fprint(w, flags.FlagUsages())
}
