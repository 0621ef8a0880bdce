package config

import (
	"strings"
	"time"
)

type PostgresConfig struct {
	DSN             string        `envconfig:"DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

// LedgerConfig controls namespace resolution and call budgets of the ledger service.
type LedgerConfig struct {
	// Namespaces is the ordered list of schemas holding the ledger tables.
	// The first entry is the primary one; the rest are read fallbacks.
	Namespaces  []string      `envconfig:"NAMESPACES" default:"tokens,public"`
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"3s"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`

	// DevFallback lets Balance return a mock account on remote failure.
	// Never set from the environment: see IsProduction.
	DevFallback bool `ignored:"true"`
}

type WalletConfig struct {
	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8080"`
	CachePath      string        `envconfig:"CACHE_PATH" default:".tokenledger/wallet.cbor"`
	CatalogPath    string        `envconfig:"CATALOG_PATH"`
	WelcomeBonus   int64         `envconfig:"WELCOME_BONUS" default:"10"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// IsProduction reports whether appEnv names a production deployment.
// Anything unrecognised is treated as production so financial data is never faked by accident.
func IsProduction(appEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "dev", "development", "local", "test":
		return false
	default:
		return true
	}
}
