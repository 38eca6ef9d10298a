package source

import (
	"context"
	"time"
)

// Universe resolves the partition sets the sources iterate. Implemented by
// discovery.Cache.
type Universe interface {
	SpotSymbols(ctx context.Context) ([]string, error)
	MarginSymbols(ctx context.Context) ([]string, error)
	MarginAssets(ctx context.Context) ([]string, error)
}

// Config carries the per-source tuning read from sync config.
type Config struct {
	// WindowDays bounds sub-windows for the 90-day-capped endpoints.
	WindowDays int

	// PageSize for current/size paged endpoints, max 100.
	PageSize int

	// TradePageSize for the trade endpoints, max 1000.
	TradePageSize int
}

func (c Config) window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// Terminal statuses kept during conversion; everything else is in flight
// and will reappear in a later window once settled.
const (
	depositStatusSuccess    = 1
	withdrawStatusCompleted = 6
	loanStatusConfirmed     = "CONFIRMED"
	purchaseStatusSuccess   = "SUCCESS"
	redemptionStatusPaid    = "PAID"
)
