// Package bitcoinhash isolates the legacy hashing primitive the Bitcoin
// protocol requires for P2PKH-style address construction, so that its
// deprecated dependency stays quarantined to one file.
package bitcoinhash

import (
	"crypto/sha256"

	// RIPEMD160 is deprecated for new designs but REQUIRED by the Bitcoin
	// protocol (BIP-13, BIP-16) and, by extension, by Stacks c32 addresses,
	// which reuse the same hash160 construction. This is a protocol
	// requirement, not a design choice.
	//nolint:gosec,staticcheck // G507,SA1019: required by Bitcoin protocol
	"golang.org/x/crypto/ripemd160"
)

// Hash160 computes RIPEMD160(SHA256(data)), the standard Bitcoin
// address-hashing function also used by Stacks c32 addresses.
//
//nolint:gosec // G406: RIPEMD160 usage required by protocol
func Hash160(data []byte) []byte {
	shaHash := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(shaHash[:])
	return r.Sum(nil)
}
