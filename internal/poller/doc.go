// Package poller drives periodic re-synchronization.
//
// In interval mode the ledger keeps running and re-syncs the whole account
// on a fixed ticker. Each cycle is one orchestrated run; the discovery
// cache is dropped between cycles so newly listed pairs are picked up.
package poller
