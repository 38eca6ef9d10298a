package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mverret/binance-ledger/internal/auth"
)

func testCreds() *auth.Credentials {
	return &auth.Credentials{APIKey: "test-key", APISecret: "test-secret"}
}

func TestDoRequest_SignsQuery(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		json.NewEncoder(w).Encode([]AccountTrade{})
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds(), WithTimeout(5*time.Second))

	_, err := client.MyTrades(context.Background(), TradesOptions{Symbol: "BTCUSDT", FromID: -1, Limit: 1000})
	if err != nil {
		t.Fatalf("MyTrades() error = %v", err)
	}

	if got := captured.Header.Get("X-MBX-APIKEY"); got != "test-key" {
		t.Errorf("X-MBX-APIKEY = %q, want test-key", got)
	}

	q := captured.URL.Query()
	if q.Get("symbol") != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", q.Get("symbol"))
	}
	if q.Get("timestamp") == "" {
		t.Error("signed request missing timestamp")
	}

	sig := q.Get("signature")
	if sig == "" {
		t.Fatal("signed request missing signature")
	}

	// The signature must cover everything before the signature parameter.
	raw := captured.URL.RawQuery
	payload := raw[:strings.Index(raw, "&signature=")]
	if want := testCreds().Sign(payload); sig != want {
		t.Errorf("signature = %s, want %s", sig, want)
	}
}

func TestDoRequest_PublicEndpointUnsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("signature") != "" {
			t.Error("public endpoint should not be signed")
		}
		json.NewEncoder(w).Encode(ExchangeInfo{Symbols: []SymbolInfo{{Symbol: "BTCUSDT", Status: "TRADING"}}})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	info, err := client.ExchangeInfo(context.Background())
	if err != nil {
		t.Fatalf("ExchangeInfo() error = %v", err)
	}
	if len(info.Symbols) != 1 || info.Symbols[0].Symbol != "BTCUSDT" {
		t.Errorf("unexpected symbols: %+v", info.Symbols)
	}
}

func TestDoRequest_ErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"code":-1003,"msg":"Too many requests."}`, true},
		{"server error", http.StatusInternalServerError, `{}`, true},
		{"invalid symbol", http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`, false},
		{"bad auth", http.StatusUnauthorized, `{"code":-2014,"msg":"API-key format invalid."}`, false},
		{"ip ban", http.StatusTeapot, `{"code":-1003,"msg":"Way too many requests."}`, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, testCreds())
			_, err := client.DepositHistory(context.Background(), 1, 2, 1)
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %v is not *api.Error", err)
			}
			if apiErr.StatusCode != c.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, c.status)
			}
			if apiErr.Transient() != c.transient {
				t.Errorf("Transient() = %v, want %v", apiErr.Transient(), c.transient)
			}
		})
	}
}

func TestDoRequest_ParsesBinanceErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":-1003,"msg":"Too many requests; current limit is 1200 request weight per minute."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds())
	_, err := client.AssetDividends(context.Background(), 1, 2, 500)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not *api.Error", err)
	}
	if apiErr.Code != -1003 {
		t.Errorf("Code = %d, want -1003", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Too many requests") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.RetryAfter() != 7*time.Second {
		t.Errorf("RetryAfter() = %v, want 7s", apiErr.RetryAfter())
	}
}

func TestTradesOptions_FromIDOverridesTimeRange(t *testing.T) {
	opts := TradesOptions{Symbol: "ETHBTC", FromID: 100, StartTime: 1, EndTime: 2, Limit: 500}
	q := opts.values()

	if q.Get("fromId") != "100" {
		t.Errorf("fromId = %q, want 100", q.Get("fromId"))
	}
	if q.Get("startTime") != "" || q.Get("endTime") != "" {
		t.Error("time range should be omitted when fromId is set")
	}
}

func TestMarginQuery_ArchivedFlag(t *testing.T) {
	q := MarginQuery{Asset: "BNB", StartTime: 1, EndTime: 2, Current: 3, Size: 100, Archived: true}.values()

	if q.Get("archived") != "true" {
		t.Errorf("archived = %q, want true", q.Get("archived"))
	}
	if q.Get("current") != "3" {
		t.Errorf("current = %q, want 3", q.Get("current"))
	}
}

