package engine

import "time"

// Window describes a source's remote query bounds.
type Window struct {
	// MaxSpan is the longest time range one request may cover. Zero means
	// the endpoint takes the full range in a single sub-window (cursor
	// pagination covers it).
	MaxSpan time.Duration

	// PageSize is the page size the source requests.
	PageSize int
}

// span is one inclusive sub-window [Start, End] in epoch milliseconds.
type span struct {
	Start int64
	End   int64
}

// splitWindows slices the inclusive range [start, end] into consecutive
// spans no longer than maxSpan. A range of exactly maxSpan yields one span;
// one millisecond more yields two. maxSpan zero yields a single span.
func splitWindows(start, end int64, maxSpan time.Duration) []span {
	if start > end {
		return nil
	}
	spanMs := maxSpan.Milliseconds()
	if spanMs <= 0 {
		return []span{{Start: start, End: end}}
	}

	var out []span
	for s := start; s <= end; {
		e := s + spanMs - 1
		if e > end {
			e = end
		}
		out = append(out, span{Start: s, End: e})
		s = e + 1
	}
	return out
}
