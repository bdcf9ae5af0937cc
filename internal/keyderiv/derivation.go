package keyderiv

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/hdkeychain/v3"

	"github.com/aibtc/wallet-core/internal/netparams"
)

// hdNetParams satisfies hdkeychain.NetworkParams. The version bytes only
// affect the extended-key string encoding (which this module never
// serializes or persists), so the standard Bitcoin mainnet bytes are used
// regardless of which network the derived addresses target.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// BIP-44-style purposes used for the three key families this module derives.
const (
	purposeStacks  uint32 = 44
	purposeSegwit  uint32 = 84
	purposeTaproot uint32 = 86

	// stacksCoinType is Stacks' registered SLIP-44 coin type.
	stacksCoinType uint32 = 5757
)

var (
	// ErrInvalidSeedLength indicates the seed is not a usable BIP-39 seed.
	ErrInvalidSeedLength = errors.New("keyderiv: seed must be 16-64 bytes")
)

// coinType returns the BIP-44 coin type for Bitcoin-family paths on the
// given network (0 mainnet, 1 testnet, same convention BIP-44 defines for
// every coin).
func coinType(network netparams.Network) uint32 {
	if network == netparams.Mainnet {
		return 0
	}
	return 1
}

// derivePath walks purpose'/coinType'/account'/0/index from masterKey.
func derivePath(masterKey *hdkeychain.ExtendedKey, purpose, coin, account, index uint32) (*hdkeychain.ExtendedKey, error) {
	purposeKey, err := masterKey.ChildBIP32Std(hdkeychain.HardenedKeyStart + purpose)
	if err != nil {
		return nil, fmt.Errorf("keyderiv: deriving purpose key: %w", err)
	}

	coinKey, err := purposeKey.ChildBIP32Std(hdkeychain.HardenedKeyStart + coin)
	if err != nil {
		return nil, fmt.Errorf("keyderiv: deriving coin-type key: %w", err)
	}

	accountKey, err := coinKey.ChildBIP32Std(hdkeychain.HardenedKeyStart + account)
	if err != nil {
		return nil, fmt.Errorf("keyderiv: deriving account key: %w", err)
	}

	changeKey, err := accountKey.ChildBIP32Std(0)
	if err != nil {
		return nil, fmt.Errorf("keyderiv: deriving change key: %w", err)
	}

	indexKey, err := changeKey.ChildBIP32Std(index)
	if err != nil {
		return nil, fmt.Errorf("keyderiv: deriving index key: %w", err)
	}

	return indexKey, nil
}

// DerivationPath formats the path a given key family uses, for display and
// for the wallet metadata recorded alongside a keystore entry.
func DerivationPath(purpose uint32, coin, account, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/0/%d", purpose, coin, account, index)
}

// masterKeyFromSeed validates seed length and builds the BIP-32 master key.
func masterKeyFromSeed(seed []byte) (*hdkeychain.ExtendedKey, error) {
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeedLength
	}
	return hdkeychain.NewMaster(seed, hdNetParams{})
}

// privKeyBytes returns a 32-byte copy of key's private scalar.
func privKeyBytes(key *hdkeychain.ExtendedKey) ([]byte, error) {
	serialized, err := key.SerializedPrivKey()
	if err != nil {
		return nil, fmt.Errorf("keyderiv: serializing private key: %w", err)
	}
	out := make([]byte, 32)
	copy(out, serialized)
	return out, nil
}
