package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Error represents an error response from the Binance API.
type Error struct {
	StatusCode int
	Code       int // Binance error code, e.g. -1121 for an invalid symbol
	Message    string
	Body       []byte

	retryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("binance api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Transient reports whether the error should trigger a retry. Rate limits
// (429) and server errors are transient; an IP ban (418) and client errors
// (bad symbol, bad signature) are not.
func (e *Error) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter returns the server-requested wait before the next attempt, or
// zero when the response carried no Retry-After header.
func (e *Error) RetryAfter() time.Duration {
	return e.retryAfter
}

// doRequest performs a single GET request against the given path. When
// signed is true, a timestamp and HMAC signature are appended to the query.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, signed bool, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	if signed {
		if c.creds == nil {
			return fmt.Errorf("endpoint %s requires credentials", path)
		}
		query.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		encoded := query.Encode()
		encoded += "&signature=" + c.creds.Sign(encoded)
		return c.do(ctx, path, encoded, result)
	}

	return c.do(ctx, path, query.Encode(), result)
}

func (c *Client) do(ctx context.Context, path, rawQuery string, result any) error {
	fullURL := c.baseURL + path
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newAPIError(resp, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func newAPIError(resp *http.Response, body []byte) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       body,
	}

	// Binance error payloads look like {"code":-1121,"msg":"Invalid symbol."}
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Msg != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Msg
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			apiErr.retryAfter = time.Duration(sec) * time.Second
		}
	}

	return apiErr
}
