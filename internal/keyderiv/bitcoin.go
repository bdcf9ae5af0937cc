package keyderiv

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/aibtc/wallet-core/internal/bitcoinhash"
	"github.com/aibtc/wallet-core/internal/netparams"
)

// BitcoinKey holds a derived native-SegWit (P2WPKH, BIP-84) signing key.
type BitcoinKey struct {
	Path       string
	PrivateKey []byte // 32 bytes
	PublicKey  []byte // 33-byte compressed
	Address    string
}

// deriveBitcoinKey derives a BIP-84 P2WPKH key at m/84'/coin'/account'/0/index.
func deriveBitcoinKey(seed []byte, network netparams.Network, account, index uint32) (*BitcoinKey, error) {
	masterKey, err := masterKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}

	coin := coinType(network)
	key, err := derivePath(masterKey, purposeSegwit, coin, account, index)
	if err != nil {
		return nil, err
	}

	priv, err := privKeyBytes(key)
	if err != nil {
		return nil, err
	}

	pub := key.SerializedPubKey()
	hash160 := bitcoinhash.Hash160(pub)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash160, network.BitcoinParams())
	if err != nil {
		return nil, fmt.Errorf("keyderiv: building P2WPKH address: %w", err)
	}

	return &BitcoinKey{
		Path:       DerivationPath(purposeSegwit, coin, account, index),
		PrivateKey: priv,
		PublicKey:  pub,
		Address:    addr.EncodeAddress(),
	}, nil
}
