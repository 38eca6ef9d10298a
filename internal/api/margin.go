package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// MarginAllPairs fetches the cross-margin pair list.
func (c *Client) MarginAllPairs(ctx context.Context) ([]MarginPair, error) {
	var resp []MarginPair
	if err := c.doRequest(ctx, "/sapi/v1/margin/allPairs", nil, true, &resp); err != nil {
		return nil, fmt.Errorf("get margin all pairs: %w", err)
	}
	return resp, nil
}

// MarginTrades fetches cross-margin trades for a symbol.
func (c *Client) MarginTrades(ctx context.Context, opts TradesOptions) ([]AccountTrade, error) {
	var resp []AccountTrade
	if err := c.doRequest(ctx, "/sapi/v1/margin/myTrades", opts.values(), true, &resp); err != nil {
		return nil, fmt.Errorf("get margin trades %s: %w", opts.Symbol, err)
	}
	return resp, nil
}

// MarginQuery parameterizes the paged cross-margin history endpoints.
// Records older than roughly three months live behind Archived=true and must
// be queried separately.
type MarginQuery struct {
	Asset     string // empty for account-wide endpoints
	StartTime int64
	EndTime   int64
	Current   int // 1-based page
	Size      int // max 100
	Archived  bool
}

func (q MarginQuery) values() url.Values {
	query := url.Values{}
	if q.Asset != "" {
		query.Set("asset", q.Asset)
	}
	query.Set("startTime", strconv.FormatInt(q.StartTime, 10))
	query.Set("endTime", strconv.FormatInt(q.EndTime, 10))
	query.Set("current", strconv.Itoa(q.Current))
	query.Set("size", strconv.Itoa(q.Size))
	if q.Archived {
		query.Set("archived", "true")
	}
	return query
}

// MarginLoans fetches one page of cross-margin borrow history for an asset.
func (c *Client) MarginLoans(ctx context.Context, q MarginQuery) (*MarginLoanList, error) {
	var resp MarginLoanList
	if err := c.doRequest(ctx, "/sapi/v1/margin/loan", q.values(), true, &resp); err != nil {
		return nil, fmt.Errorf("get margin loans %s: %w", q.Asset, err)
	}
	return &resp, nil
}

// MarginRepays fetches one page of cross-margin repay history for an asset.
func (c *Client) MarginRepays(ctx context.Context, q MarginQuery) (*MarginRepayList, error) {
	var resp MarginRepayList
	if err := c.doRequest(ctx, "/sapi/v1/margin/repay", q.values(), true, &resp); err != nil {
		return nil, fmt.Errorf("get margin repays %s: %w", q.Asset, err)
	}
	return &resp, nil
}

// MarginInterests fetches one page of account-wide cross-margin interest
// history.
func (c *Client) MarginInterests(ctx context.Context, q MarginQuery) (*MarginInterestList, error) {
	var resp MarginInterestList
	if err := c.doRequest(ctx, "/sapi/v1/margin/interestHistory", q.values(), true, &resp); err != nil {
		return nil, fmt.Errorf("get margin interests: %w", err)
	}
	return &resp, nil
}
