package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ExchangeInfo fetches the exchange-wide symbol list. Public endpoint.
func (c *Client) ExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	var resp ExchangeInfo
	if err := c.doRequest(ctx, "/api/v3/exchangeInfo", nil, false, &resp); err != nil {
		return nil, fmt.Errorf("get exchange info: %w", err)
	}
	return &resp, nil
}

// TradesOptions filters account trade queries. Zero values are omitted from
// the request. FromID takes precedence over the time range when set.
type TradesOptions struct {
	Symbol    string
	FromID    int64 // fetch trades with id >= FromID; -1 means unset
	StartTime int64
	EndTime   int64
	Limit     int
}

func (o TradesOptions) values() url.Values {
	query := url.Values{}
	query.Set("symbol", o.Symbol)
	if o.FromID >= 0 {
		query.Set("fromId", strconv.FormatInt(o.FromID, 10))
	} else {
		if o.StartTime > 0 {
			query.Set("startTime", strconv.FormatInt(o.StartTime, 10))
		}
		if o.EndTime > 0 {
			query.Set("endTime", strconv.FormatInt(o.EndTime, 10))
		}
	}
	if o.Limit > 0 {
		query.Set("limit", strconv.Itoa(o.Limit))
	}
	return query
}

// MyTrades fetches spot trades for a symbol.
func (c *Client) MyTrades(ctx context.Context, opts TradesOptions) ([]AccountTrade, error) {
	var resp []AccountTrade
	if err := c.doRequest(ctx, "/api/v3/myTrades", opts.values(), true, &resp); err != nil {
		return nil, fmt.Errorf("get my trades %s: %w", opts.Symbol, err)
	}
	return resp, nil
}

// DepositHistory fetches crypto deposits in [startTime, endTime]. The
// endpoint bounds the range to 90 days.
func (c *Client) DepositHistory(ctx context.Context, startTime, endTime int64, status int) ([]DepositRecord, error) {
	query := url.Values{}
	query.Set("startTime", strconv.FormatInt(startTime, 10))
	query.Set("endTime", strconv.FormatInt(endTime, 10))
	if status >= 0 {
		query.Set("status", strconv.Itoa(status))
	}

	var resp []DepositRecord
	if err := c.doRequest(ctx, "/sapi/v1/capital/deposit/hisrec", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get deposit history: %w", err)
	}
	return resp, nil
}

// WithdrawHistory fetches crypto withdrawals in [startTime, endTime]. The
// endpoint bounds the range to 90 days.
func (c *Client) WithdrawHistory(ctx context.Context, startTime, endTime int64, status int) ([]WithdrawRecord, error) {
	query := url.Values{}
	query.Set("startTime", strconv.FormatInt(startTime, 10))
	query.Set("endTime", strconv.FormatInt(endTime, 10))
	if status >= 0 {
		query.Set("status", strconv.Itoa(status))
	}

	var resp []WithdrawRecord
	if err := c.doRequest(ctx, "/sapi/v1/capital/withdraw/history", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get withdraw history: %w", err)
	}
	return resp, nil
}

// DustLog fetches small-balance BNB conversions in [startTime, endTime].
func (c *Client) DustLog(ctx context.Context, startTime, endTime int64) (*DustLog, error) {
	query := url.Values{}
	if startTime > 0 {
		query.Set("startTime", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		query.Set("endTime", strconv.FormatInt(endTime, 10))
	}

	var resp DustLog
	if err := c.doRequest(ctx, "/sapi/v1/asset/dribblet", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get dust log: %w", err)
	}
	return &resp, nil
}

// AssetDividends fetches dividend distributions in [startTime, endTime],
// newest first, at most limit rows (endpoint max 500).
func (c *Client) AssetDividends(ctx context.Context, startTime, endTime int64, limit int) (*DividendList, error) {
	query := url.Values{}
	query.Set("startTime", strconv.FormatInt(startTime, 10))
	query.Set("endTime", strconv.FormatInt(endTime, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp DividendList
	if err := c.doRequest(ctx, "/sapi/v1/asset/assetDividend", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get asset dividends: %w", err)
	}
	return &resp, nil
}

// UniversalTransfers fetches one page of universal transfer history for a
// transfer type enum (e.g. MAIN_MARGIN). Pages are 1-based.
func (c *Client) UniversalTransfers(ctx context.Context, transferType string, startTime, endTime int64, current, size int) (*TransferList, error) {
	query := url.Values{}
	query.Set("type", transferType)
	query.Set("startTime", strconv.FormatInt(startTime, 10))
	query.Set("endTime", strconv.FormatInt(endTime, 10))
	query.Set("current", strconv.Itoa(current))
	query.Set("size", strconv.Itoa(size))

	var resp TransferList
	if err := c.doRequest(ctx, "/sapi/v1/asset/transfer", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get universal transfers %s: %w", transferType, err)
	}
	return &resp, nil
}
