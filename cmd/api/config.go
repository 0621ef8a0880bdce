package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/tokenledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `envconfig:"APP_PORT" default:"8080"`
	AppEnv          string        `envconfig:"APP_ENV" default:"production"`
	LogLevel        slog.Level    `envconfig:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	// ReconcileSchedule is a cron spec; empty disables the job.
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"@every 1h"`

	Postgres config.PostgresConfig `envconfig:"PG"`
	Ledger   config.LedgerConfig   `envconfig:"LEDGER"`
}
