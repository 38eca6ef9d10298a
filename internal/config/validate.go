package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *LedgerConfig) Validate() error {
	if c.Account.APIKey == "" {
		return errors.New("account.api_key is required")
	}
	if c.Account.APISecret == "" {
		return errors.New("account.api_secret is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if _, err := time.Parse("2006-01-02", c.Sync.EarliestStart); err != nil {
		return fmt.Errorf("sync.earliest_start must be a YYYY-MM-DD date, got %q", c.Sync.EarliestStart)
	}
	if c.Sync.WindowDays < 1 || c.Sync.WindowDays > 90 {
		return fmt.Errorf("sync.window_days must be between 1 and 90, got %d", c.Sync.WindowDays)
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 100 {
		return fmt.Errorf("sync.page_size must be between 1 and 100, got %d", c.Sync.PageSize)
	}
	if c.Sync.TradePageSize < 1 || c.Sync.TradePageSize > 1000 {
		return fmt.Errorf("sync.trade_page_size must be between 1 and 1000, got %d", c.Sync.TradePageSize)
	}
	if c.Sync.Concurrency < 1 {
		return errors.New("sync.concurrency must be >= 1")
	}
	if c.Sync.Interval < 0 {
		return errors.New("sync.interval cannot be negative")
	}

	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries cannot be negative")
	}
	if c.API.RequestsPerSecond <= 0 {
		return errors.New("api.requests_per_second must be > 0")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
