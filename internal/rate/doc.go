// Package rate provides the Redis-backed attempt limiter used by the account
// lifecycle operations.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:<scope>:<subject>", where scope is the token purpose being
// verified and subject is a user id or client address.
//
// # What this package must NOT do
//
//   - Decide which operations are limited (the engine does).
//   - Be imported outside the flasky module.
package rate
