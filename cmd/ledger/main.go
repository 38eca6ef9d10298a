package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/auth"
	"github.com/mverret/binance-ledger/internal/config"
	"github.com/mverret/binance-ledger/internal/discovery"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
	"github.com/mverret/binance-ledger/internal/orchestrator"
	"github.com/mverret/binance-ledger/internal/poller"
	"github.com/mverret/binance-ledger/internal/source"
	"github.com/mverret/binance-ledger/internal/store"
	"github.com/mverret/binance-ledger/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ledger.yaml", "path to config file")
	group := flag.String("group", "all", "account group to sync: spot, cross_margin, lending or all")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ledger",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"account", cfg.Account.Name,
		"api_url", cfg.API.BaseURL,
		"driver", cfg.Database.Driver,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open the local store
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	logger.Info("store ready")

	// Create API client
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

	universe := discovery.New(client, cfg.Sync.Symbols)

	engOpts := engine.DefaultOptions()
	engOpts.EarliestStart = cfg.EarliestStartMillis()
	engOpts.MaxRetries = cfg.API.MaxRetries
	engOpts.RetryBackoff = cfg.API.RetryBackoff
	engOpts.Concurrency = cfg.Sync.Concurrency
	eng := engine.New(st, engOpts, logger)

	srcCfg := source.Config{
		WindowDays:    cfg.Sync.WindowDays,
		PageSize:      cfg.Sync.PageSize,
		TradePageSize: cfg.Sync.TradePageSize,
	}
	orch := orchestrator.New(eng, orchestrator.DefaultSources(client, universe, srcCfg), logger)

	if cfg.Sync.Interval > 0 {
		runIntervalMode(ctx, cfg, st, orch, universe, logger)
		return
	}

	summary := runOnce(ctx, orch, *group, logger)
	if summary == nil {
		os.Exit(1)
	}
	if summary.Err() != nil {
		os.Exit(1)
	}
}

// runOnce performs a single sync of the requested group and reports it.
func runOnce(ctx context.Context, orch *orchestrator.Orchestrator, group string, logger *slog.Logger) *orchestrator.Summary {
	var (
		summary *orchestrator.Summary
		err     error
	)
	if group == "all" {
		summary = orch.UpdateAll(ctx)
	} else {
		summary, err = orch.UpdateGroup(ctx, model.Group(group))
		if err != nil {
			logger.Error("update failed", "group", group, "error", err)
			return nil
		}
	}

	for _, result := range summary.Results {
		attrs := []any{
			"element", result.Element,
			"new_records", result.NewRecords,
			"partitions", len(result.Counts),
		}
		if result.Err != nil {
			attrs = append(attrs, "error", result.Err)
			logger.Warn("element type finished with failures", attrs...)
			continue
		}
		logger.Info("element type synced", attrs...)
	}
	return summary
}

// runIntervalMode keeps re-syncing on the configured interval and exposes a
// health endpoint until a shutdown signal arrives.
func runIntervalMode(ctx context.Context, cfg *config.LedgerConfig, st store.Store, orch *orchestrator.Orchestrator, universe *discovery.Cache, logger *slog.Logger) {
	healthPort := 8080
	if cfg.Health.Port > 0 {
		healthPort = cfg.Health.Port
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", healthPort),
		Handler: createHealthHandler(st, cfg.Account.Name),
	}
	go func() {
		logger.Info("starting health server", "port", healthPort)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	p := poller.New(poller.Config{Interval: cfg.Sync.Interval}, orch, universe.Reset, logger)
	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("ledger running",
		"account", cfg.Account.Name,
		"interval", cfg.Sync.Interval,
		"health_url", fmt.Sprintf("http://localhost:%d/health", healthPort),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	p.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("ledger stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(st store.Store, account string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Account    string         `json:"account"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Account:    account,
			Components: make(map[string]any),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
