package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mverret/binance-ledger/internal/orchestrator"
)

// Runner executes one full synchronization cycle. Implemented by
// orchestrator.Orchestrator.
type Runner interface {
	UpdateAll(ctx context.Context) *orchestrator.Summary
}

// Config holds poller configuration.
type Config struct {
	// Interval between re-sync cycles.
	Interval time.Duration

	// Timeout bounds one cycle; zero means no bound.
	Timeout time.Duration
}

// Poller re-runs a full account sync on a fixed interval.
type Poller struct {
	cfg    Config
	runner Runner
	reset  func() // drops per-run caches between cycles
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a poller. reset may be nil.
func New(cfg Config, runner Runner, reset func(), logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		runner: runner,
		reset:  reset,
		logger: logger,
	}
}

// Start begins the re-sync loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("sync poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop shuts the poller down, waiting for an in-flight cycle to reach a
// commit boundary.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("sync poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.cycle()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.cycle()
		}
	}
}

func (p *Poller) cycle() {
	if p.reset != nil {
		p.reset()
	}

	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
		defer cancel()
	}

	summary := p.runner.UpdateAll(ctx)
	if err := summary.Err(); err != nil {
		p.logger.Warn("sync cycle finished with failures",
			"run_id", summary.RunID,
			"new_records", summary.TotalNew(),
			"error", err,
		)
		return
	}
	p.logger.Debug("sync cycle complete",
		"run_id", summary.RunID,
		"new_records", summary.TotalNew(),
	)
}
