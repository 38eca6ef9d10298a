// Package orchestrator sequences the synchronization engine across element
// types, grouped by account type. A failed element type is recorded in the
// run summary and never aborts the rest of the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/engine"
	"github.com/mverret/binance-ledger/internal/model"
	"github.com/mverret/binance-ledger/internal/source"
)

// groupOrder fixes the account-group sequence for a full update.
var groupOrder = []model.Group{model.GroupSpot, model.GroupCrossMargin, model.GroupLending}

// DefaultSources wires every tracked element type for an account, grouped
// by account type in sync order.
func DefaultSources(client *api.Client, universe source.Universe, cfg source.Config) map[model.Group][]engine.Source {
	return map[model.Group][]engine.Source{
		model.GroupSpot: {
			source.NewSpotTrades(client, universe, cfg),
			source.NewDeposits(client, cfg),
			source.NewWithdraws(client, cfg),
			source.NewDusts(client, cfg),
			source.NewDividends(client, cfg),
			source.NewTransfers(client, cfg),
		},
		model.GroupCrossMargin: {
			source.NewMarginTrades(client, universe, cfg),
			source.NewMarginLoans(client, universe, cfg),
			source.NewMarginRepays(client, universe, cfg),
			source.NewMarginInterests(client, cfg),
		},
		model.GroupLending: {
			source.NewLendingPurchases(client, cfg),
			source.NewLendingRedemptions(client, cfg),
			source.NewLendingInterests(client, cfg),
		},
	}
}

// TypeResult is the outcome of one element type within a run.
type TypeResult struct {
	Element    model.ElementType
	Counts     map[string]int // per partition
	NewRecords int
	Err        error
}

// Summary aggregates a whole run.
type Summary struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Results  []TypeResult
}

// TotalNew sums new records across element types.
func (s *Summary) TotalNew() int {
	total := 0
	for _, r := range s.Results {
		total += r.NewRecords
	}
	return total
}

// Err joins the per-type errors, nil when every type succeeded.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Element, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Orchestrator runs the engine over registered source groups.
type Orchestrator struct {
	engine  *engine.Engine
	sources map[model.Group][]engine.Source
	logger  *slog.Logger
}

// New creates an orchestrator over the given group wiring. A nil logger
// falls back to slog.Default.
func New(eng *engine.Engine, sources map[model.Group][]engine.Source, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{engine: eng, sources: sources, logger: logger}
}

// UpdateGroup syncs every element type of one account group in fixed order.
func (o *Orchestrator) UpdateGroup(ctx context.Context, group model.Group) (*Summary, error) {
	srcs, ok := o.sources[group]
	if !ok {
		return nil, fmt.Errorf("unknown account group %q", group)
	}
	summary := o.newSummary()
	o.runSources(ctx, summary, group, srcs)
	summary.Finished = time.Now()
	o.logSummary(summary, string(group))
	return summary, nil
}

// UpdateAll syncs every registered group in fixed order under one run id.
func (o *Orchestrator) UpdateAll(ctx context.Context) *Summary {
	summary := o.newSummary()
	for _, group := range groupOrder {
		if srcs, ok := o.sources[group]; ok {
			o.runSources(ctx, summary, group, srcs)
		}
	}
	summary.Finished = time.Now()
	o.logSummary(summary, "all")
	return summary
}

func (o *Orchestrator) newSummary() *Summary {
	return &Summary{RunID: uuid.New(), Started: time.Now()}
}

func (o *Orchestrator) runSources(ctx context.Context, summary *Summary, group model.Group, srcs []engine.Source) {
	for _, src := range srcs {
		counts, err := o.engine.SyncAll(ctx, src)
		result := TypeResult{Element: src.Element(), Counts: counts, Err: err}
		for _, n := range counts {
			result.NewRecords += n
		}
		if err != nil {
			o.logger.Error("element type sync failed",
				"run_id", summary.RunID,
				"group", group,
				"element", src.Element(),
				"new_records", result.NewRecords,
				"error", err,
			)
		}
		summary.Results = append(summary.Results, result)

		// Stop launching new element types once the run is cancelled; the
		// results gathered so far stay valid.
		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) logSummary(summary *Summary, scope string) {
	failed := 0
	for _, r := range summary.Results {
		if r.Err != nil {
			failed++
		}
	}
	o.logger.Info("update finished",
		"run_id", summary.RunID,
		"scope", scope,
		"element_types", len(summary.Results),
		"failed_types", failed,
		"new_records", summary.TotalNew(),
		"duration", summary.Finished.Sub(summary.Started),
	)
}
