// Package discovery resolves the symbol and asset universes the sources
// iterate. Results are cached so an orchestrated run over many element
// types pays the discovery cost once.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mverret/binance-ledger/internal/api"
)

// Cache memoizes universe lookups. A configured symbol list overrides the
// exchange-wide symbol discovery, which otherwise costs one request per
// sync run and iterates every listed pair.
type Cache struct {
	client   *api.Client
	override []string

	mu            sync.Mutex
	spotSymbols   []string
	marginSymbols []string
	marginAssets  []string
}

// New creates a cache. symbols, when non-empty, replaces both spot and
// margin symbol discovery.
func New(client *api.Client, symbols []string) *Cache {
	return &Cache{client: client, override: symbols}
}

// SpotSymbols returns every listed spot pair, or the configured override.
func (c *Cache) SpotSymbols(ctx context.Context) ([]string, error) {
	if len(c.override) > 0 {
		return c.override, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spotSymbols != nil {
		return c.spotSymbols, nil
	}

	info, err := c.client.ExchangeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover spot symbols: %w", err)
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		symbols = append(symbols, s.Symbol)
	}
	sort.Strings(symbols)
	c.spotSymbols = symbols
	return symbols, nil
}

// MarginSymbols returns every cross-margin pair, or the configured override.
func (c *Cache) MarginSymbols(ctx context.Context) ([]string, error) {
	if len(c.override) > 0 {
		return c.override, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadMarginLocked(ctx); err != nil {
		return nil, err
	}
	return c.marginSymbols, nil
}

// MarginAssets returns the distinct base and quote assets of the
// cross-margin pairs. The symbol override does not apply: margin loan and
// repay history is partitioned by asset, not pair.
func (c *Cache) MarginAssets(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadMarginLocked(ctx); err != nil {
		return nil, err
	}
	return c.marginAssets, nil
}

func (c *Cache) loadMarginLocked(ctx context.Context) error {
	if c.marginSymbols != nil {
		return nil
	}

	pairs, err := c.client.MarginAllPairs(ctx)
	if err != nil {
		return fmt.Errorf("discover margin pairs: %w", err)
	}

	symbols := make([]string, 0, len(pairs))
	assetSet := make(map[string]struct{})
	for _, p := range pairs {
		symbols = append(symbols, p.Symbol)
		assetSet[p.Base] = struct{}{}
		assetSet[p.Quote] = struct{}{}
	}
	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	sort.Strings(symbols)
	sort.Strings(assets)

	c.marginSymbols = symbols
	c.marginAssets = assets
	return nil
}

// Reset drops the cached universes so the next lookup re-queries the
// exchange. Called between orchestrated runs in interval mode.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spotSymbols = nil
	c.marginSymbols = nil
	c.marginAssets = nil
}
