package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/auth"
)

func testClient(t *testing.T, hits *int, handler http.HandlerFunc) *api.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return api.NewClient(server.URL, &auth.Credentials{APIKey: "k", APISecret: "s"})
}

func TestCache_SpotSymbolsMemoized(t *testing.T) {
	hits := 0
	client := testClient(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.ExchangeInfo{Symbols: []api.SymbolInfo{
			{Symbol: "ETHUSDT"},
			{Symbol: "BTCUSDT"},
		}})
	})
	cache := New(client, nil)
	ctx := context.Background()

	first, err := cache.SpotSymbols(ctx)
	if err != nil {
		t.Fatalf("SpotSymbols() error = %v", err)
	}
	if len(first) != 2 || first[0] != "BTCUSDT" {
		t.Errorf("symbols = %v, want sorted [BTCUSDT ETHUSDT]", first)
	}

	if _, err := cache.SpotSymbols(ctx); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("exchange info fetched %d times, want 1", hits)
	}

	cache.Reset()
	if _, err := cache.SpotSymbols(ctx); err != nil {
		t.Fatal(err)
	}
	if hits != 2 {
		t.Errorf("after Reset, fetches = %d, want 2", hits)
	}
}

func TestCache_SymbolOverrideSkipsDiscovery(t *testing.T) {
	hits := 0
	client := testClient(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		t.Error("override must not hit the exchange")
	})
	cache := New(client, []string{"BTCUSDT"})

	symbols, err := cache.SpotSymbols(context.Background())
	if err != nil {
		t.Fatalf("SpotSymbols() error = %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "BTCUSDT" {
		t.Errorf("symbols = %v", symbols)
	}
	if ms, _ := cache.MarginSymbols(context.Background()); len(ms) != 1 || ms[0] != "BTCUSDT" {
		t.Errorf("margin symbols = %v", ms)
	}
}

func TestCache_MarginAssetsDeduped(t *testing.T) {
	hits := 0
	client := testClient(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.MarginPair{
			{Symbol: "BNBBTC", Base: "BNB", Quote: "BTC"},
			{Symbol: "BNBUSDT", Base: "BNB", Quote: "USDT"},
		})
	})
	cache := New(client, nil)
	ctx := context.Background()

	assets, err := cache.MarginAssets(ctx)
	if err != nil {
		t.Fatalf("MarginAssets() error = %v", err)
	}
	want := []string{"BNB", "BTC", "USDT"}
	if len(assets) != len(want) {
		t.Fatalf("assets = %v, want %v", assets, want)
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Errorf("assets[%d] = %s, want %s", i, assets[i], want[i])
		}
	}

	// Symbols and assets come from one shared fetch.
	if _, err := cache.MarginSymbols(ctx); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("margin pairs fetched %d times, want 1", hits)
	}
}
