package keyderiv

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/aibtc/wallet-core/internal/netparams"
)

// TaprootKey holds a derived key-path-only Taproot (P2TR, BIP-86) signing key.
// PrivateKey is already tweaked per BIP-341/342 and can be handed directly
// to the Schnorr engine.
type TaprootKey struct {
	Path       string
	PrivateKey []byte // 32 bytes, tweaked
	XOnlyPub   []byte // 32-byte x-only output key
	Address    string
}

// deriveTaprootKey derives a BIP-86 P2TR key at m/86'/coin'/account'/0/index.
func deriveTaprootKey(seed []byte, network netparams.Network, account, index uint32) (*TaprootKey, error) {
	masterKey, err := masterKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}

	coin := coinType(network)
	key, err := derivePath(masterKey, purposeTaproot, coin, account, index)
	if err != nil {
		return nil, err
	}

	rawPriv, err := privKeyBytes(key)
	if err != nil {
		return nil, err
	}

	internalPriv, _ := btcec.PrivKeyFromBytes(rawPriv)
	tweakedPriv := txscript.TweakTaprootPrivKey(*internalPriv, nil)
	outputKey := txscript.ComputeTaprootKeyNoScript(internalPriv.PubKey())
	xOnly := schnorr.SerializePubKey(outputKey)

	addr, err := btcutil.NewAddressTaproot(xOnly, network.BitcoinParams())
	if err != nil {
		return nil, fmt.Errorf("keyderiv: building P2TR address: %w", err)
	}

	return &TaprootKey{
		Path:       DerivationPath(purposeTaproot, coin, account, index),
		PrivateKey: tweakedPriv.Serialize(),
		XOnlyPub:   xOnly,
		Address:    addr.EncodeAddress(),
	}, nil
}
