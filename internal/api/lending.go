package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func lendingValues(lendingType string, startTime, endTime int64, current, size int) url.Values {
	query := url.Values{}
	query.Set("lendingType", lendingType)
	query.Set("startTime", strconv.FormatInt(startTime, 10))
	query.Set("endTime", strconv.FormatInt(endTime, 10))
	query.Set("current", strconv.Itoa(current))
	query.Set("size", strconv.Itoa(size))
	return query
}

// LendingPurchases fetches one page of lending purchase history for a
// lending type (DAILY, ACTIVITY or CUSTOMIZED_FIXED).
func (c *Client) LendingPurchases(ctx context.Context, lendingType string, startTime, endTime int64, current, size int) ([]LendingPurchaseRecord, error) {
	var resp []LendingPurchaseRecord
	query := lendingValues(lendingType, startTime, endTime, current, size)
	if err := c.doRequest(ctx, "/sapi/v1/lending/union/purchaseRecord", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get lending purchases %s: %w", lendingType, err)
	}
	return resp, nil
}

// LendingRedemptions fetches one page of lending redemption history.
func (c *Client) LendingRedemptions(ctx context.Context, lendingType string, startTime, endTime int64, current, size int) ([]LendingRedemptionRecord, error) {
	var resp []LendingRedemptionRecord
	query := lendingValues(lendingType, startTime, endTime, current, size)
	if err := c.doRequest(ctx, "/sapi/v1/lending/union/redemptionRecord", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get lending redemptions %s: %w", lendingType, err)
	}
	return resp, nil
}

// LendingInterests fetches one page of lending interest history.
func (c *Client) LendingInterests(ctx context.Context, lendingType string, startTime, endTime int64, current, size int) ([]LendingInterestRecord, error) {
	var resp []LendingInterestRecord
	query := lendingValues(lendingType, startTime, endTime, current, size)
	if err := c.doRequest(ctx, "/sapi/v1/lending/union/interestHistory", query, true, &resp); err != nil {
		return nil, fmt.Errorf("get lending interests %s: %w", lendingType, err)
	}
	return resp, nil
}
