package keyderiv

import (
	"fmt"

	"github.com/aibtc/wallet-core/internal/bitcoinhash"
	"github.com/aibtc/wallet-core/internal/netparams"
)

// StacksKey holds a derived Stacks signing key and its address.
type StacksKey struct {
	Path          string
	PrivateKey    []byte // 32 bytes
	PublicKey     []byte // 33-byte compressed
	Address       string
	DerivedOnAcct uint32
}

// deriveStacksKey derives the Stacks signing key at m/44'/5757'/account'/0/index.
func deriveStacksKey(seed []byte, network netparams.Network, account, index uint32) (*StacksKey, error) {
	masterKey, err := masterKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}

	key, err := derivePath(masterKey, purposeStacks, stacksCoinType, account, index)
	if err != nil {
		return nil, err
	}

	priv, err := privKeyBytes(key)
	if err != nil {
		return nil, err
	}

	pub := key.SerializedPubKey()
	hash160 := bitcoinhash.Hash160(pub)
	address := StacksAddress(network.C32Version(), hash160)

	return &StacksKey{
		Path:          DerivationPath(purposeStacks, stacksCoinType, account, index),
		PrivateKey:    priv,
		PublicKey:     pub,
		Address:       address,
		DerivedOnAcct: account,
	}, nil
}

// StacksAddressFromPubKey recomputes a Stacks address from a compressed
// public key, used by the SIP-018 recovery path.
func StacksAddressFromPubKey(network netparams.Network, compressedPubKey []byte) (string, error) {
	if len(compressedPubKey) != 33 {
		return "", fmt.Errorf("keyderiv: compressed public key must be 33 bytes, got %d", len(compressedPubKey))
	}
	hash160 := bitcoinhash.Hash160(compressedPubKey)
	return StacksAddress(network.C32Version(), hash160), nil
}
