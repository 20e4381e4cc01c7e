// Package token issues and verifies the signed, purpose-scoped tokens used by
// the account lifecycle: email confirmation, password reset, email change and
// stateless API authentication.
//
// Tokens are compact HS256 JWS strings (base64url segments joined by '.'),
// so they are safe to embed in links and headers. Each purpose signs with its
// own key derived from the shared secret, which keeps a token minted for one
// flow from being accepted by another.
//
// Verification never panics and always reports failure through one of
// [ErrInvalidToken], [ErrExpiredToken] or [ErrWrongPurpose].
package token
