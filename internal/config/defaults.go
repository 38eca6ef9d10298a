package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://api.binance.com"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBackoff      = 1 * time.Second
	DefaultRequestsPerSecond = 8.0
	DefaultBurst             = 16
	DefaultDriver            = "sqlite"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultEarliestStart     = "2017-01-01"
	DefaultWindowDays        = 90
	DefaultPageSize          = 100
	DefaultTradePageSize     = 1000
	DefaultConcurrency       = 1
	DefaultHealthPort        = 8080
	DefaultAccountName       = "default"
)

func (c *LedgerConfig) applyDefaults() {
	// Account defaults
	if c.Account.Name == "" {
		c.Account.Name = DefaultAccountName
	}

	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.RequestsPerSecond == 0 {
		c.API.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.API.Burst == 0 {
		c.API.Burst = DefaultBurst
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = c.Account.Name + "_ledger.db"
	}
	applyDBDefaults(&c.Database.Postgres)

	// Sync defaults
	if c.Sync.EarliestStart == "" {
		c.Sync.EarliestStart = DefaultEarliestStart
	}
	if c.Sync.WindowDays == 0 {
		c.Sync.WindowDays = DefaultWindowDays
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = DefaultPageSize
	}
	if c.Sync.TradePageSize == 0 {
		c.Sync.TradePageSize = DefaultTradePageSize
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = DefaultConcurrency
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
