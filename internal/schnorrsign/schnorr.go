// Package schnorrsign implements BIP-340 Schnorr signing over raw
// 32-byte digests for Taproot key-path spends and arbitrary
// agent-attested digests, with a mandatory human-review gate for
// "blind sign" requests — digests the caller cannot independently
// interpret before a key signs them.
package schnorrsign

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/aibtc/wallet-core/pkg/apperr"
)

var (
	ErrInvalidPrivateKey = errors.New("schnorrsign: private key must be 32 bytes")
	ErrInvalidDigest     = errors.New("schnorrsign: digest must be 32 bytes")
	ErrInvalidPubKey     = errors.New("schnorrsign: public key must be 32 bytes (x-only)")
)

// Request describes a blind-sign candidate: a digest the caller cannot
// decode into a human-meaningful message, requiring explicit review
// before signing.
type Request struct {
	Digest   [32]byte
	Reviewed bool // true once a human/operator has confirmed signing intent
}

// Sign signs a 32-byte digest with a BIP-340 Schnorr signature using
// privateKey, which must already be Taproot-tweaked where applicable
// (keyderiv.TaprootKey.PrivateKey is pre-tweaked).
func Sign(digest [32]byte, privateKey []byte) ([]byte, error) {
	if len(privateKey) != 32 {
		return nil, ErrInvalidPrivateKey
	}

	priv, _ := btcec.PrivKeyFromBytes(privateKey)
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("schnorrsign: signing: %w", err)
	}
	return sig.Serialize(), nil
}

// SignBlind signs req.Digest only if req.Reviewed is true, enforcing
// that opaque digests never get signed without an explicit
// confirmation step upstream (CLI prompt, approval workflow, etc.).
func SignBlind(req Request, privateKey []byte) ([]byte, error) {
	if !req.Reviewed {
		return nil, apperr.New(apperr.KindBlindSignNotConfirmed, "digest was not reviewed before signing").
			WithSuggestion("present the digest to the operator for confirmation before calling SignBlind")
	}
	return Sign(req.Digest, privateKey)
}

// Verify checks a 64-byte BIP-340 signature over digest against a
// 32-byte x-only public key.
func Verify(digest [32]byte, signature []byte, xOnlyPubKey []byte) (bool, error) {
	if len(xOnlyPubKey) != 32 {
		return false, ErrInvalidPubKey
	}

	pubKey, err := schnorr.ParsePubKey(xOnlyPubKey)
	if err != nil {
		return false, fmt.Errorf("schnorrsign: parsing public key: %w", err)
	}

	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false, fmt.Errorf("schnorrsign: parsing signature: %w", err)
	}

	return sig.Verify(digest[:], pubKey), nil
}
