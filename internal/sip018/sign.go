package sip018

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/aibtc/wallet-core/internal/clarity"
	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
)

// recoveryHeaderBase is the compact-signature header byte offset dcrd's
// ecdsa.SignCompact uses for a compressed public key (27 for uncompressed,
// +4 for compressed). Every key this module signs with is compressed, so
// the recovery id is always recovered against this fixed base.
const recoveryHeaderBase = 31

// ErrInvalidPrivateKey indicates a malformed 32-byte private key.
var ErrInvalidPrivateKey = errors.New("sip018: invalid private key")

// Signature is an RSV (r || s || recovery-id) secp256k1 signature, the
// wire format spec.md's external interfaces define for SIP-018.
type Signature [65]byte

// Sign computes the verification hash for domain/message and signs it
// with privateKey, returning an RSV signature.
func Sign(domain Domain, message clarity.Value, privateKey []byte) (Signature, error) {
	digest, err := VerificationHash(domain, message)
	if err != nil {
		return Signature{}, err
	}
	return SignDigest(digest, privateKey)
}

// SignDigest signs a pre-computed 32-byte verification hash.
func SignDigest(digest [32]byte, privateKey []byte) (Signature, error) {
	if len(privateKey) != 32 {
		return Signature{}, ErrInvalidPrivateKey
	}

	priv := secp256k1.PrivKeyFromBytes(privateKey)
	compact := ecdsa.SignCompact(priv, digest[:], true)
	if len(compact) != 65 {
		return Signature{}, fmt.Errorf("sip018: unexpected compact signature length %d", len(compact))
	}

	var sig Signature
	copy(sig[0:32], compact[1:33])  // R
	copy(sig[32:64], compact[33:65]) // S
	sig[64] = compact[0] - recoveryHeaderBase

	return sig, nil
}

// Recover recovers the signer's compressed public key and Stacks address
// for the given network from an RSV signature over domain/message.
func Recover(domain Domain, message clarity.Value, sig Signature, network netparams.Network) (pubKey []byte, address string, err error) {
	digest, err := VerificationHash(domain, message)
	if err != nil {
		return nil, "", err
	}
	return RecoverDigest(digest, sig, network)
}

// RecoverDigest recovers from a pre-computed verification hash.
func RecoverDigest(digest [32]byte, sig Signature, network netparams.Network) (pubKey []byte, address string, err error) {
	compact := make([]byte, 65)
	compact[0] = recoveryHeaderBase + sig[64]
	copy(compact[1:33], sig[0:32])
	copy(compact[33:65], sig[32:64])

	recoveredPub, wasCompressed, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return nil, "", fmt.Errorf("sip018: recovering public key: %w", err)
	}
	if !wasCompressed {
		return nil, "", errors.New("sip018: recovered key was not compressed")
	}

	pub := recoveredPub.SerializeCompressed()

	address, err = keyderiv.StacksAddressFromPubKey(network, pub)
	if err != nil {
		return nil, "", err
	}

	return pub, address, nil
}
