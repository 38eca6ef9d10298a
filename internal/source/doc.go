// Package source implements engine.Source for each Binance history
// endpoint. Each source knows its endpoint's window bound, page size and
// cursor style, converts wire records to model records and filters out
// non-terminal statuses.
package source
