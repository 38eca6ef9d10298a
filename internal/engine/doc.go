// Package engine implements the synchronization core: for each
// (element type, partition) pair it computes the uncovered time range from
// the stored watermark, splits it into sub-windows the remote endpoint
// accepts, paginates each sub-window, dedupes by identity and commits the
// batch together with the advanced watermark.
//
// Commits happen at sub-window granularity, so an interrupted run resumes
// from the last committed sub-window and re-fetches at most one sub-window
// of data, which identity dedup makes harmless.
package engine
