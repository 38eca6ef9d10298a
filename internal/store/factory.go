package store

import (
	"context"
	"fmt"

	"github.com/mverret/binance-ledger/internal/config"
)

// Open creates the store backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
