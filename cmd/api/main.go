package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/tokenledger/internal/api"
	"github.com/fastprodman/tokenledger/internal/config"
	"github.com/fastprodman/tokenledger/internal/infra/logging"
	"github.com/fastprodman/tokenledger/internal/infra/pgutils"
	"github.com/fastprodman/tokenledger/internal/jobs"
	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/fastprodman/tokenledger/pkg/envconf"
	"github.com/fastprodman/tokenledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logger := logging.SetupJSON(cfg.LogLevel).With("app_env", cfg.AppEnv)

	cfg.Ledger.DevFallback = !config.IsProduction(cfg.AppEnv)

	queue := shutdownqueue.New(logger)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := queue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	queue.Add("postgres", func(context.Context) error {
		return db.Close()
	})

	ledgerSvc := ledger.New(db, cfg.Ledger, logger)

	// --- Jobs ---
	if cfg.ReconcileSchedule != "" {
		sched := jobs.NewScheduler(ledgerSvc, cfg.ReconcileSchedule, logger)

		err = sched.Start(ctx)
		if err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}

		queue.Add("scheduler", sched.Stop)
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, ledgerSvc, logger)

	queue.Add("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	logger.Info("API started", "port", cfg.Port, "namespaces", cfg.Ledger.Namespaces, "dev_fallback", cfg.Ledger.DevFallback)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
