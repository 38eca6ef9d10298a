package store

import (
	"context"

	"github.com/mverret/binance-ledger/internal/model"
)

// Store is the local persistence contract used by the synchronization
// engine. Implementations must make CommitWindow atomic: either the batch
// and the watermark both land, or neither does.
type Store interface {
	// GetWatermark returns the timestamp of the most recent fully
	// synchronized record for (element, partition), or ok=false when the
	// partition has never been synced.
	GetWatermark(ctx context.Context, element model.ElementType, partition string) (ts int64, ok bool, err error)

	// SetWatermark records ts as the new watermark for (element, partition).
	SetWatermark(ctx context.Context, element model.ElementType, partition string, ts int64) error

	// HasIdentity reports whether a record with the given identity key has
	// already been committed for the element type.
	HasIdentity(ctx context.Context, element model.ElementType, identity string) (bool, error)

	// InsertBatch writes records, skipping identities already present, and
	// returns the number actually inserted.
	InsertBatch(ctx context.Context, records []model.Record) (int, error)

	// CommitWindow atomically inserts the records of one sub-window and
	// advances the watermark for (element, partition) to watermark. It
	// returns the number of records actually inserted.
	CommitWindow(ctx context.Context, element model.ElementType, partition string, records []model.Record, watermark int64) (int, error)

	// Query returns committed records for the element type ordered by
	// ascending timestamp. partition filters when non-empty; start and end
	// bound the time range when non-zero (inclusive).
	Query(ctx context.Context, element model.ElementType, partition string, start, end int64) ([]model.Record, error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
