// Package store persists account-history records and per-partition sync
// watermarks.
//
// Two backends implement the same contract: a sqlite file (the default,
// one file per tracked account) and Postgres. Records are keyed by their
// locally computed identity; inserts use ON CONFLICT DO NOTHING so replayed
// fetches never double-count. CommitWindow writes a batch and advances the
// watermark in one transaction, which is what makes interrupted syncs
// resumable.
package store
