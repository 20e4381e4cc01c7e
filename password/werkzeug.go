package password

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// scrypt output length used by Werkzeug.
const werkzeugScryptKeyLen = 64

func isWerkzeug(encoded string) bool {
	return strings.HasPrefix(encoded, "pbkdf2:") || strings.HasPrefix(encoded, "scrypt:")
}

// verifyWerkzeug checks a "method$salt$hexdigest" hash. The salt is used as
// its literal bytes, as Werkzeug does.
func verifyWerkzeug(password, encoded string) (bool, error) {
	method, rest, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, fmt.Errorf("%w: missing salt separator", ErrMalformedHash)
	}
	salt, digestHex, ok := strings.Cut(rest, "$")
	if !ok || salt == "" {
		return false, fmt.Errorf("%w: missing digest", ErrMalformedHash)
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: invalid digest encoding", ErrMalformedHash)
	}

	fields := strings.Split(method, ":")
	var got []byte
	switch fields[0] {
	case "pbkdf2":
		got, err = werkzeugPBKDF2(fields[1:], password, salt, len(want))
	case "scrypt":
		got, err = werkzeugScrypt(fields[1:], password, salt)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedHash, fields[0])
	}
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func werkzeugPBKDF2(args []string, password, salt string, keyLen int) ([]byte, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("%w: invalid pbkdf2 method", ErrMalformedHash)
	}

	var h func() hash.Hash
	switch args[0] {
	case "sha1":
		h = sha1.New
	case "sha256":
		h = sha256.New
	case "sha512":
		h = sha512.New
	default:
		return nil, fmt.Errorf("%w: pbkdf2 digest %q", ErrUnsupportedHash, args[0])
	}

	iterations := 260000
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: invalid pbkdf2 iterations", ErrMalformedHash)
		}
		iterations = n
	}

	return pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, h), nil
}

func werkzeugScrypt(args []string, password, salt string) ([]byte, error) {
	n, r, p := 32768, 8, 1
	if len(args) != 0 && len(args) != 3 {
		return nil, fmt.Errorf("%w: invalid scrypt method", ErrMalformedHash)
	}
	if len(args) == 3 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil {
			return nil, fmt.Errorf("%w: invalid scrypt N", ErrMalformedHash)
		}
		if r, err = strconv.Atoi(args[1]); err != nil {
			return nil, fmt.Errorf("%w: invalid scrypt r", ErrMalformedHash)
		}
		if p, err = strconv.Atoi(args[2]); err != nil {
			return nil, fmt.Errorf("%w: invalid scrypt p", ErrMalformedHash)
		}
	}

	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, werkzeugScryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return key, nil
}
