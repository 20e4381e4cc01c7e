package password

import (
	"errors"
	"fmt"
)

var (
	// ErrPasswordPolicy is returned when a plaintext violates the length policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnsupportedHash is returned for hash schemes this package does not know.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Hasher is the contract the account flows depend on.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// Legacy wraps an Argon2 hasher so that Werkzeug hashes from older
// deployments still verify. New hashes are always Argon2id.
type Legacy struct {
	*Argon2
}

// NewLegacy returns a Hasher that writes Argon2id and reads both formats.
func NewLegacy(cfg Config) (*Legacy, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Legacy{Argon2: a}, nil
}

// Verify dispatches on the hash prefix.
func (l *Legacy) Verify(password, encoded string) (bool, error) {
	switch {
	case isPHC(encoded):
		return l.Argon2.Verify(password, encoded)
	case isWerkzeug(encoded):
		if len(password) > l.config.MaxPasswordBytes {
			return false, fmt.Errorf("%w: must be at most %d bytes", ErrPasswordPolicy, l.config.MaxPasswordBytes)
		}
		return verifyWerkzeug(password, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsRehash is always true for Werkzeug hashes.
func (l *Legacy) NeedsRehash(encoded string) (bool, error) {
	if isWerkzeug(encoded) {
		return true, nil
	}
	return l.Argon2.NeedsRehash(encoded)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Legacy)(nil)
)
