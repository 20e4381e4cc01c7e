// Package flows contains pure-function orchestrators for the account
// lifecycle operations of Engine.
//
// Each flow function (RunConfirmEmail, RunResetPassword, RunChangeEmail,
// etc.) accepts a typed dependency struct and returns results without
// side-effects beyond the user record it is given. A flow mutates that
// record only when it reports success; the Engine persists it.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import flasky (to avoid import cycles).
//   - Perform I/O directly. Lookups go through the dependency functions.
package flows
