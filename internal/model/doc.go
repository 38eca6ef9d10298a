// Package model defines the account-history record types tracked by the
// synchronizer and the identity scheme used to deduplicate them.
//
// Every record carries a millisecond timestamp, a partition key (the symbol,
// asset or enum value its endpoint is queried by) and a locally computed
// identity key. Identities come from Binance natural keys where one exists
// (trade id, transaction id, purchase id) and from a composite of
// timestamp+partition+payload where none does.
package model
