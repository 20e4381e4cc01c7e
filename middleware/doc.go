// Package middleware exposes HTTP adapters over flasky.Engine for API
// routes authenticated by bearer auth tokens.
//
// # Guards
//
//   - [Guard] resolves "Authorization: Bearer <token>" to an Identity.
//   - [RequirePermission] rejects identities whose role lacks a permission.
//   - [ClientIP] attaches the caller address used for attempt limiting and
//     the account event log.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// verify tokens itself; every decision is delegated to the resolver.
package middleware
