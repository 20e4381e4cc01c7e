// Package password hashes account passwords with Argon2id and verifies both
// Argon2id hashes and the Werkzeug hashes left by earlier Flask
// deployments.
//
// # Output format
//
// New hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy hashes look like "pbkdf2:sha256:600000$<salt>$<hex>" or
// "scrypt:32768:8:1$<salt>$<hex>". They verify but are always reported by
// [Hasher.NeedsRehash] so callers can migrate them on the next login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords.
package password
