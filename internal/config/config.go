package config

import "time"

// LedgerConfig is the root configuration for a ledger instance.
type LedgerConfig struct {
	Account  AccountConfig  `yaml:"account"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Health   HealthConfig   `yaml:"health"`
}

// AccountConfig identifies the Binance account being tracked.
type AccountConfig struct {
	// Name separates the stores of several tracked accounts.
	Name string `yaml:"name"`

	// APIKey and APISecret need read-only scope. They are held in memory
	// only; nothing in this process persists them.
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// APIConfig holds Binance REST API settings.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// RequestsPerSecond caps outbound request rate to stay inside the
	// account's request-weight budget.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DatabaseConfig selects and configures the local store backend.
type DatabaseConfig struct {
	Driver   string       `yaml:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Postgres DBConfig     `yaml:"postgres"`
}

// SQLiteConfig holds the sqlite backend settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DBConfig holds a Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SyncConfig holds synchronization engine settings.
type SyncConfig struct {
	// EarliestStart is the first instant ever scanned for a partition with
	// no watermark, as a UTC date (Binance rejects unbounded history).
	EarliestStart string `yaml:"earliest_start"`

	// WindowDays bounds each sub-window; most history endpoints reject
	// ranges over 90 days.
	WindowDays int `yaml:"window_days"`

	// PageSize for paged (current/size) endpoints, max 100.
	PageSize int `yaml:"page_size"`

	// TradePageSize for trade endpoints, max 1000.
	TradePageSize int `yaml:"trade_page_size"`

	// Symbols overrides spot/margin symbol discovery when non-empty.
	// Full discovery iterates every listed pair, which costs one request
	// per pair.
	Symbols []string `yaml:"symbols"`

	// Concurrency is the number of partitions synced in flight. 1 keeps
	// remote requests strictly sequential.
	Concurrency int `yaml:"concurrency"`

	// Interval enables periodic re-sync when non-zero; otherwise the
	// ledger runs once and exits.
	Interval time.Duration `yaml:"interval"`
}

// HealthConfig holds the health endpoint settings (interval mode only).
type HealthConfig struct {
	Port int `yaml:"port"`
}

// EarliestStartMillis returns the configured earliest start as milliseconds
// since epoch. Call Validate first; this panics on an unparseable date.
func (c *LedgerConfig) EarliestStartMillis() int64 {
	t, err := time.Parse("2006-01-02", c.Sync.EarliestStart)
	if err != nil {
		panic("config: invalid earliest_start past validation: " + c.Sync.EarliestStart)
	}
	return t.UnixMilli()
}
