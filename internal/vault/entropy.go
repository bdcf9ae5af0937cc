package vault

import (
	"crypto/rand"
	"io"
)

// Reader is the cryptographically secure random source used throughout
// this package. It is a var so tests can substitute a deterministic
// reader when checking error paths.
//
//nolint:gochecknoglobals // package-level RNG needed for testability
var Reader io.Reader = rand.Reader

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SecureRandomBytes returns n random bytes inside a locked SecureBytes buffer.
func SecureRandomBytes(n int) (*SecureBytes, error) {
	sb, err := NewSecureBytes(n)
	if err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(Reader, sb.Bytes()); err != nil {
		sb.Destroy()
		return nil, err
	}

	return sb, nil
}
