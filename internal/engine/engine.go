package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/model"
	"github.com/mverret/binance-ledger/internal/store"
)

// Source feeds one element type to the engine. Implementations live in
// internal/source, one per Binance history endpoint.
type Source interface {
	// Element returns the element type this source fetches.
	Element() model.ElementType

	// Partitions returns the partition keys to iterate for a bulk sync.
	// Account-wide sources return a single "" partition.
	Partitions(ctx context.Context) ([]string, error)

	// Window returns the source's remote query bounds.
	Window() Window

	// FetchPage fetches one page of records within [start, end] for a
	// partition. cursor is "" for the first page; a "" next cursor means
	// the window is exhausted. Records must carry remote timestamps and
	// stay within the requested range.
	FetchPage(ctx context.Context, partition string, start, end int64, cursor string) (records []model.Record, nextCursor string, err error)
}

// Options configures a sync run.
type Options struct {
	// EarliestStart is the range start, in epoch ms, for partitions with
	// no watermark yet.
	EarliestStart int64

	// StartTime and EndTime override the computed range when non-zero.
	StartTime int64
	EndTime   int64

	// Symbols overrides Partitions for symbol-partitioned sources.
	Symbols []string

	// AutoAdvanceWatermark commits the watermark with each sub-window.
	// When false the engine only inserts records, for ad-hoc backfills.
	AutoAdvanceWatermark bool

	// MaxRetries bounds retry attempts on transient remote errors.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt. A remote
	// Retry-After hint takes precedence when longer.
	RetryBackoff time.Duration

	// Concurrency caps partitions synced in flight during SyncAll.
	Concurrency int

	// Now stubs the end-of-range clock in tests.
	Now func() time.Time
}

// DefaultOptions returns the options a production sync runs with, before
// config values are applied.
func DefaultOptions() Options {
	return Options{
		AutoAdvanceWatermark: true,
		MaxRetries:           3,
		RetryBackoff:         time.Second,
		Concurrency:          1,
	}
}

// Engine drives watermark-based incremental synchronization against a Store.
type Engine struct {
	store  store.Store
	opts   Options
	logger *slog.Logger
}

// New creates an engine. A nil logger falls back to slog.Default.
func New(st store.Store, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: st, opts: opts, logger: logger}
}

// Sync brings one partition of src up to date and returns the number of new
// records committed. The end of the range is captured once at call start.
func (e *Engine) Sync(ctx context.Context, src Source, partition string) (int, error) {
	element := src.Element()

	start := e.opts.StartTime
	if start == 0 {
		w, ok, err := e.store.GetWatermark(ctx, element, partition)
		if err != nil {
			return 0, fmt.Errorf("read watermark %s/%s: %w", element, partition, err)
		}
		if ok {
			start = w + 1
		} else {
			start = e.opts.EarliestStart
		}
	}

	end := e.opts.EndTime
	if end == 0 {
		end = e.opts.Now().UnixMilli()
	}
	if start > end {
		return 0, nil
	}

	total := 0
	for _, sw := range splitWindows(start, end, src.Window().MaxSpan) {
		// Cancellation lands between commits, never inside one.
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.syncWindow(ctx, src, partition, sw)
		total += n
		if err != nil {
			return total, err
		}
	}

	e.logger.Debug("partition synced",
		"element", element,
		"partition", partition,
		"new_records", total,
		"range_start", start,
		"range_end", end,
	)
	return total, nil
}

// SyncAll syncs every partition of src and returns per-partition new-record
// counts. Failed partitions are skipped, not fatal; their errors come back
// joined so callers can report them alongside the successes.
func (e *Engine) SyncAll(ctx context.Context, src Source) (map[string]int, error) {
	partitions := e.opts.Symbols
	if len(partitions) == 0 {
		var err error
		partitions, err = src.Partitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover partitions %s: %w", src.Element(), err)
		}
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int, len(partitions))
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, partition := range partitions {
		partition := partition
		g.Go(func() error {
			n, err := e.Sync(ctx, src, partition)
			mu.Lock()
			defer mu.Unlock()
			counts[partition] = n
			if err != nil {
				errs = append(errs, &PartitionError{Element: src.Element(), Partition: partition, Err: err})
			}
			return nil
		})
	}
	g.Wait()

	return counts, errors.Join(errs...)
}

// syncWindow paginates one sub-window, stages deduped records and commits
// them together with the advanced watermark.
func (e *Engine) syncWindow(ctx context.Context, src Source, partition string, sw span) (int, error) {
	var (
		staged []model.Record
		seen   = make(map[string]struct{})
		cursor string
	)

	for {
		records, next, err := e.fetchWithRetry(ctx, src, partition, sw, cursor)
		if err != nil {
			return 0, err
		}
		for _, rec := range records {
			// fromId-style cursors can run past the window end.
			if rec.Time() > sw.End {
				continue
			}
			id := rec.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			staged = append(staged, rec)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	if !e.opts.AutoAdvanceWatermark {
		n, err := e.store.InsertBatch(ctx, staged)
		if err != nil {
			return 0, fmt.Errorf("insert batch %s/%s: %w", src.Element(), partition, err)
		}
		return n, nil
	}

	// An empty window still advances the watermark so it is never rescanned.
	n, err := e.store.CommitWindow(ctx, src.Element(), partition, staged, sw.End)
	if err != nil {
		return 0, fmt.Errorf("commit window %s/%s [%d, %d]: %w", src.Element(), partition, sw.Start, sw.End, err)
	}
	return n, nil
}

// fetchWithRetry fetches one page, retrying transient errors with
// exponential backoff up to MaxRetries.
func (e *Engine) fetchWithRetry(ctx context.Context, src Source, partition string, sw span, cursor string) ([]model.Record, string, error) {
	backoff := e.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		records, next, err := src.FetchPage(ctx, partition, sw.Start, sw.End, cursor)
		if err == nil {
			return records, next, nil
		}
		if !isTransient(err) || attempt >= e.opts.MaxRetries {
			return nil, "", fmt.Errorf("fetch page %s/%s: %w", src.Element(), partition, err)
		}

		wait := backoff
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			if ra := apiErr.RetryAfter(); ra > wait {
				wait = ra
			}
		}
		e.logger.Warn("transient fetch error, backing off",
			"element", src.Element(),
			"partition", partition,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err,
		)
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, "", err
		}
		backoff *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
