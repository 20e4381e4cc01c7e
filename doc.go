// Package flasky is the account and social core of a small blogging
// service: roles with permission masks, users, a follow graph with a
// followed-posts feed, posts and comments, and the signed-token flows for
// email confirmation, password reset, email change and API access.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// flasky is the public surface. It exposes [Engine], [Builder], [Config],
// [Identity] and value types. Persistence sits behind the storage package
// contracts; token verification flows and attempt limiting live under
// internal/ and are never exported.
//
// # Transactions
//
// Every mutating Engine method runs in one storage transaction. A failed
// operation leaves no partial writes. Storage failures are returned wrapped
// in [ErrPersistence] with the cause kept in the chain.
//
// # Startup
//
// Hosts call [Engine.BootstrapRoles] (or [Engine.CheckRoles] when roles are
// managed elsewhere) before serving traffic. A store without a default role
// cannot create accounts.
package flasky
