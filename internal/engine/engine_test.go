package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/model"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	watermarks map[string]int64
	records    map[model.ElementType]map[string]model.Record
	commits    int
	failNext   int // fail this many upcoming CommitWindow calls
}

func newMemStore() *memStore {
	return &memStore{
		watermarks: make(map[string]int64),
		records:    make(map[model.ElementType]map[string]model.Record),
	}
}

func wmKey(element model.ElementType, partition string) string {
	return string(element) + "|" + partition
}

func (m *memStore) GetWatermark(_ context.Context, element model.ElementType, partition string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.watermarks[wmKey(element, partition)]
	return ts, ok, nil
}

func (m *memStore) SetWatermark(_ context.Context, element model.ElementType, partition string, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarks[wmKey(element, partition)] = ts
	return nil
}

func (m *memStore) HasIdentity(_ context.Context, element model.ElementType, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[element][identity]
	return ok, nil
}

func (m *memStore) InsertBatch(_ context.Context, records []model.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(records), nil
}

func (m *memStore) insertLocked(records []model.Record) int {
	inserted := 0
	for _, rec := range records {
		byID := m.records[rec.Element()]
		if byID == nil {
			byID = make(map[string]model.Record)
			m.records[rec.Element()] = byID
		}
		if _, dup := byID[rec.Identity()]; dup {
			continue
		}
		byID[rec.Identity()] = rec
		inserted++
	}
	return inserted
}

func (m *memStore) CommitWindow(_ context.Context, element model.ElementType, partition string, records []model.Record, watermark int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return 0, errors.New("disk full")
	}
	inserted := m.insertLocked(records)
	m.watermarks[wmKey(element, partition)] = watermark
	m.commits++
	return inserted, nil
}

func (m *memStore) Query(_ context.Context, element model.ElementType, partition string, start, end int64) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Record
	for _, rec := range m.records[element] {
		if partition != "" && rec.Partition() != partition {
			continue
		}
		if start > 0 && rec.Time() < start {
			continue
		}
		if end > 0 && rec.Time() > end {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time() < out[j].Time() })
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

type fetchCall struct {
	Partition  string
	Start, End int64
	Cursor     string
}

// fakeSource serves fixture records page by page with an offset cursor.
type fakeSource struct {
	element    model.ElementType
	partitions []string
	window     Window
	records    map[string][]model.Record

	mu         sync.Mutex
	calls      []fetchCall
	failOnCall map[int]error // 1-based fetch count -> one-shot error
}

func (f *fakeSource) Element() model.ElementType { return f.element }

func (f *fakeSource) Partitions(context.Context) ([]string, error) {
	return f.partitions, nil
}

func (f *fakeSource) Window() Window { return f.window }

func (f *fakeSource) FetchPage(_ context.Context, partition string, start, end int64, cursor string) ([]model.Record, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{partition, start, end, cursor})
	n := len(f.calls)
	err := f.failOnCall[n]
	delete(f.failOnCall, n)
	f.mu.Unlock()
	if err != nil {
		return nil, "", err
	}

	var inRange []model.Record
	for _, rec := range f.records[partition] {
		if rec.Time() >= start && rec.Time() <= end {
			inRange = append(inRange, rec)
		}
	}

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	pageEnd := offset + f.window.PageSize
	if pageEnd >= len(inRange) {
		return inRange[offset:], "", nil
	}
	return inRange[offset:pageEnd], strconv.Itoa(pageEnd), nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func mkTrade(symbol string, id, ts int64) model.Trade {
	return model.Trade{TradeType: model.TradeSpot, TradeID: id, Symbol: symbol, TradeTime: ts, Qty: 1, Price: 100}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.EarliestStart = 1_000
	opts.RetryBackoff = time.Millisecond
	opts.Now = func() time.Time { return time.UnixMilli(100_000) }
	return opts
}

func TestSplitWindows(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name       string
		start, end int64
		maxSpan    time.Duration
		want       int
	}{
		{"exactly max span", 0, 90*day.Milliseconds() - 1, 90 * day, 1},
		{"one ms beyond", 0, 90 * day.Milliseconds(), 90 * day, 2},
		{"zero span single window", 0, 1 << 50, 0, 1},
		{"empty range", 10, 9, day, 0},
		{"many windows", 0, 10*day.Milliseconds() - 1, 3 * day, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := splitWindows(tt.start, tt.end, tt.maxSpan)
			if len(spans) != tt.want {
				t.Fatalf("windows = %d, want %d", len(spans), tt.want)
			}
			// Windows must tile the range with no gap or overlap.
			for i, s := range spans {
				if i == 0 && s.Start != tt.start {
					t.Errorf("first window starts at %d, want %d", s.Start, tt.start)
				}
				if i > 0 && s.Start != spans[i-1].End+1 {
					t.Errorf("window %d starts at %d, want %d", i, s.Start, spans[i-1].End+1)
				}
			}
			if n := len(spans); n > 0 && spans[n-1].End != tt.end {
				t.Errorf("last window ends at %d, want %d", spans[n-1].End, tt.end)
			}
		})
	}
}

func TestSync_ThreePagesOnePartition(t *testing.T) {
	// 1120 fixture trades paged 500/500/120.
	var fixtures []model.Record
	for i := int64(0); i < 1120; i++ {
		fixtures = append(fixtures, mkTrade("BTCUSDT", i, 2_000+i))
	}
	src := &fakeSource{
		element:    model.SpotTrades,
		partitions: []string{"BTCUSDT"},
		window:     Window{PageSize: 500},
		records:    map[string][]model.Record{"BTCUSDT": fixtures},
	}
	st := newMemStore()
	opts := testOptions()
	opts.EndTime = fixtures[len(fixtures)-1].Time()
	eng := New(st, opts, nil)

	n, err := eng.Sync(context.Background(), src, "BTCUSDT")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 1120 {
		t.Errorf("new records = %d, want 1120", n)
	}
	if got := src.callCount(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}

	w, ok, _ := st.GetWatermark(context.Background(), model.SpotTrades, "BTCUSDT")
	if !ok || w != fixtures[len(fixtures)-1].Time() {
		t.Errorf("watermark = %d, %v, want last record time %d", w, ok, fixtures[len(fixtures)-1].Time())
	}
}

func TestSync_Idempotence(t *testing.T) {
	src := &fakeSource{
		element:    model.SpotTrades,
		partitions: []string{"BTCUSDT"},
		window:     Window{PageSize: 500},
		records: map[string][]model.Record{
			"BTCUSDT": {mkTrade("BTCUSDT", 1, 5_000), mkTrade("BTCUSDT", 2, 6_000)},
		},
	}
	st := newMemStore()
	eng := New(st, testOptions(), nil)
	ctx := context.Background()

	first, err := eng.Sync(ctx, src, "BTCUSDT")
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if first != 2 {
		t.Errorf("first sync = %d new records, want 2", first)
	}
	w1, _, _ := st.GetWatermark(ctx, model.SpotTrades, "BTCUSDT")

	second, err := eng.Sync(ctx, src, "BTCUSDT")
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if second != 0 {
		t.Errorf("second sync = %d new records, want 0", second)
	}
	w2, _, _ := st.GetWatermark(ctx, model.SpotTrades, "BTCUSDT")
	if w2 != w1 {
		t.Errorf("watermark moved from %d to %d with no new activity", w1, w2)
	}
}

func TestSync_NoGapAcrossWindows(t *testing.T) {
	// Records spread over several sub-windows.
	maxSpan := 10 * time.Second
	var fixtures []model.Record
	for i := int64(0); i < 40; i++ {
		fixtures = append(fixtures, mkTrade("ETHUSDT", i, 1_000+i*2_500))
	}
	src := &fakeSource{
		element:    model.SpotTrades,
		partitions: []string{"ETHUSDT"},
		window:     Window{MaxSpan: maxSpan, PageSize: 7},
		records:    map[string][]model.Record{"ETHUSDT": fixtures},
	}
	st := newMemStore()
	eng := New(st, testOptions(), nil)
	ctx := context.Background()

	n, err := eng.Sync(ctx, src, "ETHUSDT")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != len(fixtures) {
		t.Errorf("new records = %d, want %d", n, len(fixtures))
	}

	got, err := st.Query(ctx, model.SpotTrades, "ETHUSDT", 0, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != len(fixtures) {
		t.Fatalf("stored records = %d, want %d: a window dropped data", len(got), len(fixtures))
	}
	for i, rec := range got {
		if rec.Identity() != fixtures[i].Identity() {
			t.Errorf("record %d = %s, want %s", i, rec.Identity(), fixtures[i].Identity())
		}
	}
}

func TestSync_NoDuplicatesOnOverlappingRanges(t *testing.T) {
	fixtures := []model.Record{
		mkTrade("BTCUSDT", 1, 5_000),
		mkTrade("BTCUSDT", 2, 6_000),
		mkTrade("BTCUSDT", 3, 7_000),
	}
	src := &fakeSource{
		element: model.SpotTrades,
		window:  Window{PageSize: 500},
		records: map[string][]model.Record{"BTCUSDT": fixtures},
	}
	st := newMemStore()
	ctx := context.Background()

	// Two explicit-range syncs that overlap on [5000, 7000].
	for _, r := range [][2]int64{{1_000, 7_000}, {5_000, 9_000}} {
		opts := testOptions()
		opts.StartTime, opts.EndTime = r[0], r[1]
		if _, err := New(st, opts, nil).Sync(ctx, src, "BTCUSDT"); err != nil {
			t.Fatalf("Sync(%v) error = %v", r, err)
		}
	}

	got, _ := st.Query(ctx, model.SpotTrades, "BTCUSDT", 0, 0)
	if len(got) != 3 {
		t.Errorf("stored records = %d, want 3 despite overlapping ranges", len(got))
	}
}

func TestSync_ResumesAfterCommitFailure(t *testing.T) {
	maxSpan := 10 * time.Second
	fixtures := []model.Record{
		mkTrade("BTCUSDT", 1, 2_000),  // window 1
		mkTrade("BTCUSDT", 2, 14_000), // window 2
		mkTrade("BTCUSDT", 3, 26_000), // window 3
	}
	src := &fakeSource{
		element: model.SpotTrades,
		window:  Window{MaxSpan: maxSpan, PageSize: 500},
		records: map[string][]model.Record{"BTCUSDT": fixtures},
	}
	st := newMemStore()
	opts := testOptions()
	opts.Now = func() time.Time { return time.UnixMilli(30_000) }
	eng := New(st, opts, nil)
	ctx := context.Background()

	// Sync only the first window, then arm a commit failure for the next
	// run to simulate an interruption mid-run.
	optsW1 := opts
	optsW1.EndTime = 10_999 // end of window 1
	n, err := New(st, optsW1, nil).Sync(ctx, src, "BTCUSDT")
	if err != nil {
		t.Fatalf("window 1 Sync() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("window 1 new records = %d, want 1", n)
	}
	w, _, _ := st.GetWatermark(ctx, model.SpotTrades, "BTCUSDT")
	if w != 10_999 {
		t.Fatalf("watermark = %d, want 10999", w)
	}

	st.mu.Lock()
	st.failNext = 1
	st.mu.Unlock()
	if _, err := eng.Sync(ctx, src, "BTCUSDT"); err == nil {
		t.Fatal("expected commit failure")
	}
	// Failed commit must not advance the watermark.
	w, _, _ = st.GetWatermark(ctx, model.SpotTrades, "BTCUSDT")
	if w != 10_999 {
		t.Fatalf("watermark after failed commit = %d, want 10999", w)
	}

	// Re-run resumes from the surviving watermark and does not re-insert
	// window 1's record.
	n, err = eng.Sync(ctx, src, "BTCUSDT")
	if err != nil {
		t.Fatalf("resumed Sync() error = %v", err)
	}
	if n != 2 {
		t.Errorf("resumed sync = %d new records, want 2", n)
	}
	got, _ := st.Query(ctx, model.SpotTrades, "BTCUSDT", 0, 0)
	if len(got) != 3 {
		t.Errorf("stored records = %d, want 3", len(got))
	}
}

func TestSync_RetriesRateLimitMidPagination(t *testing.T) {
	var fixtures []model.Record
	for i := int64(0); i < 1120; i++ {
		fixtures = append(fixtures, mkTrade("BTCUSDT", i, 2_000+i))
	}
	src := &fakeSource{
		element:    model.SpotTrades,
		window:     Window{PageSize: 500},
		records:    map[string][]model.Record{"BTCUSDT": fixtures},
		failOnCall: map[int]error{2: &api.Error{StatusCode: 429, Code: -1003, Message: "Too many requests."}},
	}
	st := newMemStore()
	eng := New(st, testOptions(), nil)

	n, err := eng.Sync(context.Background(), src, "BTCUSDT")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 1120 {
		t.Errorf("new records = %d, want 1120: retry must not drop or double pages", n)
	}
	if got := src.callCount(); got != 4 {
		t.Errorf("fetch calls = %d, want 4 (3 pages + 1 retry)", got)
	}
}

func TestSync_PermanentErrorNotRetried(t *testing.T) {
	src := &fakeSource{
		element:    model.SpotTrades,
		window:     Window{PageSize: 500},
		records:    map[string][]model.Record{},
		failOnCall: map[int]error{1: &api.Error{StatusCode: 400, Code: -1121, Message: "Invalid symbol."}},
	}
	st := newMemStore()
	eng := New(st, testOptions(), nil)

	_, err := eng.Sync(context.Background(), src, "NOSUCH")
	if err == nil {
		t.Fatal("expected permanent error")
	}
	if got := src.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (no retry on permanent errors)", got)
	}
	if _, ok, _ := st.GetWatermark(context.Background(), model.SpotTrades, "NOSUCH"); ok {
		t.Error("watermark must not be created for a failed partition")
	}
}

func TestSync_EmptyWindowAdvancesWatermark(t *testing.T) {
	src := &fakeSource{
		element: model.SpotDeposits,
		window:  Window{MaxSpan: 90 * 24 * time.Hour, PageSize: 100},
		records: map[string][]model.Record{},
	}
	st := newMemStore()
	opts := testOptions()
	eng := New(st, opts, nil)
	ctx := context.Background()

	n, err := eng.Sync(ctx, src, "")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 0 {
		t.Errorf("new records = %d, want 0", n)
	}
	w, ok, _ := st.GetWatermark(ctx, model.SpotDeposits, "")
	if !ok {
		t.Fatal("watermark must advance even with zero activity")
	}
	if want := opts.Now().UnixMilli(); w != want {
		t.Errorf("watermark = %d, want end of range %d", w, want)
	}

	// The empty history is not rescanned from the earliest start.
	before := src.callCount()
	if _, err := eng.Sync(ctx, src, ""); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if calls := src.callCount() - before; calls > 1 {
		t.Errorf("second sync made %d fetches, want at most 1", calls)
	}
}

func TestSync_CancelledBetweenCommits(t *testing.T) {
	maxSpan := 10 * time.Second
	fixtures := []model.Record{
		mkTrade("BTCUSDT", 1, 2_000),
		mkTrade("BTCUSDT", 2, 14_000),
	}
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{
		element: model.SpotTrades,
		window:  Window{MaxSpan: maxSpan, PageSize: 500},
		records: map[string][]model.Record{"BTCUSDT": fixtures},
	}
	// Cancel while the first window is in flight.
	cancelOnFirst := &cancellingSource{fakeSource: src, cancel: cancel}

	st := newMemStore()
	opts := testOptions()
	opts.Now = func() time.Time { return time.UnixMilli(20_000) }
	eng := New(st, opts, nil)

	n, err := eng.Sync(ctx, cancelOnFirst, "BTCUSDT")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sync() error = %v, want context.Canceled", err)
	}
	if n != 1 {
		t.Errorf("new records before cancel = %d, want 1", n)
	}
	// Watermark reflects the committed window, leaving a resumable state.
	w, ok, _ := st.GetWatermark(context.Background(), model.SpotTrades, "BTCUSDT")
	if !ok || w != 10_999 {
		t.Errorf("watermark = %d, %v, want 10999 (end of committed window)", w, ok)
	}
}

// cancellingSource cancels the run's context during the first fetch.
type cancellingSource struct {
	*fakeSource
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancellingSource) FetchPage(ctx context.Context, partition string, start, end int64, cursor string) ([]model.Record, string, error) {
	c.once.Do(c.cancel)
	return c.fakeSource.FetchPage(ctx, partition, start, end, cursor)
}

func TestSyncAll_PartitionFailureDoesNotAbortOthers(t *testing.T) {
	src := &fakeSource{
		element:    model.SpotTrades,
		partitions: []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"},
		window:     Window{PageSize: 500},
		records: map[string][]model.Record{
			"AAAUSDT": {mkTrade("AAAUSDT", 1, 5_000)},
			"CCCUSDT": {mkTrade("CCCUSDT", 2, 6_000)},
		},
		// Partition order is deterministic at concurrency 1; the second
		// partition's only fetch is call 2.
		failOnCall: map[int]error{2: &api.Error{StatusCode: 401, Code: -2014, Message: "API-key format invalid."}},
	}
	st := newMemStore()
	eng := New(st, testOptions(), nil)

	counts, err := eng.SyncAll(context.Background(), src)
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	var pErr *PartitionError
	if !errors.As(err, &pErr) {
		t.Fatalf("error %v does not unwrap to *PartitionError", err)
	}
	if pErr.Partition != "BBBUSDT" {
		t.Errorf("failed partition = %s, want BBBUSDT", pErr.Partition)
	}

	if counts["AAAUSDT"] != 1 || counts["CCCUSDT"] != 1 {
		t.Errorf("counts = %v, want 1 for AAAUSDT and CCCUSDT", counts)
	}
}

func TestSyncAll_SymbolOverride(t *testing.T) {
	src := &fakeSource{
		element:    model.SpotTrades,
		partitions: []string{"AAAUSDT", "BBBUSDT"},
		window:     Window{PageSize: 500},
		records:    map[string][]model.Record{"BBBUSDT": {mkTrade("BBBUSDT", 1, 5_000)}},
	}
	st := newMemStore()
	opts := testOptions()
	opts.Symbols = []string{"BBBUSDT"}
	eng := New(st, opts, nil)

	counts, err := eng.SyncAll(context.Background(), src)
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("counts = %v, want only the override symbol", counts)
	}
	if counts["BBBUSDT"] != 1 {
		t.Errorf("counts[BBBUSDT] = %d, want 1", counts["BBBUSDT"])
	}
}

func TestSync_NoWatermarkAdvanceMode(t *testing.T) {
	src := &fakeSource{
		element: model.SpotTrades,
		window:  Window{PageSize: 500},
		records: map[string][]model.Record{"BTCUSDT": {mkTrade("BTCUSDT", 1, 5_000)}},
	}
	st := newMemStore()
	opts := testOptions()
	opts.AutoAdvanceWatermark = false
	eng := New(st, opts, nil)
	ctx := context.Background()

	n, err := eng.Sync(ctx, src, "BTCUSDT")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 1 {
		t.Errorf("new records = %d, want 1", n)
	}
	if _, ok, _ := st.GetWatermark(ctx, model.SpotTrades, "BTCUSDT"); ok {
		t.Error("backfill mode must not touch the watermark")
	}
}

func TestSync_TransientExhaustionSurfaces(t *testing.T) {
	rateLimited := &api.Error{StatusCode: 429, Code: -1003, Message: "Too many requests."}
	src := &fakeSource{
		element: model.SpotTrades,
		window:  Window{PageSize: 500},
		records: map[string][]model.Record{},
		failOnCall: map[int]error{
			1: rateLimited, 2: rateLimited, 3: rateLimited, 4: rateLimited,
		},
	}
	st := newMemStore()
	opts := testOptions()
	opts.MaxRetries = 2
	eng := New(st, opts, nil)

	_, err := eng.Sync(context.Background(), src, "BTCUSDT")
	if err == nil {
		t.Fatal("expected error after retry budget exhausted")
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
		t.Errorf("error = %v, want wrapped 429", err)
	}
	if got := src.callCount(); got != 3 {
		t.Errorf("fetch calls = %d, want 3 (initial + 2 retries)", got)
	}
}

func ExamplePartitionError() {
	err := &PartitionError{Element: model.SpotTrades, Partition: "BTCUSDT", Err: errors.New("boom")}
	fmt.Println(err)
	// Output: sync spot_trades/BTCUSDT: boom
}
