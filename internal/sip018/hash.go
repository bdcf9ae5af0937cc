package sip018

import (
	"crypto/sha256"
	"fmt"

	"github.com/aibtc/wallet-core/internal/clarity"
)

// structuredDataPrefix is the fixed 6-byte SIP-018 prefix ("SIP018")
// prepended before hashing the concatenated domain and message hashes.
var structuredDataPrefix = [6]byte{0x53, 0x49, 0x50, 0x30, 0x31, 0x38}

// DomainHash returns sha256(serialize(domain-tuple)).
func DomainHash(domain Domain) ([32]byte, error) {
	value, err := domain.Value()
	if err != nil {
		return [32]byte{}, fmt.Errorf("sip018: building domain value: %w", err)
	}
	return hashValue(value)
}

// MessageHash returns sha256(serialize(message)).
func MessageHash(message clarity.Value) ([32]byte, error) {
	return hashValue(message)
}

// VerificationHash returns sha256(prefix || domain-hash || message-hash),
// the digest that gets signed.
func VerificationHash(domain Domain, message clarity.Value) ([32]byte, error) {
	domainHash, err := DomainHash(domain)
	if err != nil {
		return [32]byte{}, fmt.Errorf("sip018: hashing domain: %w", err)
	}

	messageHash, err := MessageHash(message)
	if err != nil {
		return [32]byte{}, fmt.Errorf("sip018: hashing message: %w", err)
	}

	buf := make([]byte, 0, len(structuredDataPrefix)+64)
	buf = append(buf, structuredDataPrefix[:]...)
	buf = append(buf, domainHash[:]...)
	buf = append(buf, messageHash[:]...)

	return sha256.Sum256(buf), nil
}

func hashValue(v clarity.Value) ([32]byte, error) {
	data, err := clarity.Serialize(v)
	if err != nil {
		return [32]byte{}, fmt.Errorf("sip018: serializing value: %w", err)
	}
	return sha256.Sum256(data), nil
}
