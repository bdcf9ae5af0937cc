// Package idgen generates the process-local identifiers wallet-core's
// stores use: RFC 4122 version-4 UUIDs for wallet_id/key_id, and a
// monotonic millisecond-timestamp id for Pillar auth ids. No third-party
// UUID library appears anywhere in the dependency pack this module was
// built from, so this is a deliberate, minimal stdlib exception — see
// DESIGN.md.
package idgen

import (
	"crypto/rand"
	"fmt"
)

// NewUUID returns a random RFC 4122 version-4 UUID string.
func NewUUID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("idgen: reading random bytes: %w", err)
	}

	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]), nil
}
