// Command apicheck verifies Binance API connectivity and credentials
// without touching the local store. Useful before pointing the ledger at a
// fresh account.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/auth"
	"github.com/mverret/binance-ledger/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/ledger.yaml", "path to config file")
	timeout := flag.Duration("timeout", 15*time.Second, "overall check timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	creds, err := auth.NewCredentials(cfg.Account.APIKey, cfg.Account.APISecret)
	if err != nil {
		logger.Error("invalid credentials", "error", err)
		os.Exit(1)
	}
	client := api.NewClient(
		cfg.API.BaseURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
	)

	// Public endpoint first: reachability without touching credentials.
	info, err := client.ExchangeInfo(ctx)
	if err != nil {
		logger.Error("exchange unreachable", "error", err)
		os.Exit(1)
	}
	logger.Info("exchange reachable", "symbols", len(info.Symbols))

	// Signed endpoint over a tiny window proves the key and secret work.
	end := time.Now().UnixMilli()
	start := end - (24 * time.Hour).Milliseconds()
	deposits, err := client.DepositHistory(ctx, start, end, -1)
	if err != nil {
		logger.Error("signed request failed, check api key and secret", "error", err)
		os.Exit(1)
	}
	logger.Info("credentials valid", "deposits_last_24h", len(deposits))

	fmt.Println("ok")
}
