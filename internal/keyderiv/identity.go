package keyderiv

import (
	"github.com/aibtc/wallet-core/internal/netparams"
)

// Identity bundles the three key families this module derives from a
// single BIP-39 seed at account 0, index 0 — the set of addresses a
// freshly created or imported wallet presents to its owner.
type Identity struct {
	Stacks  *StacksKey
	Bitcoin *BitcoinKey
	Taproot *TaprootKey
}

// DeriveIdentity derives the Stacks, Bitcoin P2WPKH, and Taproot P2TR keys
// for account 0, index 0 of seed.
func DeriveIdentity(seed []byte, network netparams.Network) (*Identity, error) {
	stacksKey, err := deriveStacksKey(seed, network, 0, 0)
	if err != nil {
		return nil, err
	}

	bitcoinKey, err := deriveBitcoinKey(seed, network, 0, 0)
	if err != nil {
		return nil, err
	}

	taprootKey, err := deriveTaprootKey(seed, network, 0, 0)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Stacks:  stacksKey,
		Bitcoin: bitcoinKey,
		Taproot: taprootKey,
	}, nil
}
