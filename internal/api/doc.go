// Package api implements the Binance REST API client used by the
// synchronizer: signed requests, rate limiting and per-endpoint query
// methods for account history.
//
// The client performs exactly one HTTP request per call and classifies
// failures through Error.Transient; retry policy lives with the caller.
package api
