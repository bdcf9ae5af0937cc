// Package bitcoinmsg implements the Bitcoin "signed message" format
// (the convention wallets have used since the original Bitcoin Core
// signmessage/verifymessage RPCs) with BIP-137 header bytes recording
// which of the four address types (P2PKH, P2SH-P2WPKH, P2WPKH, P2TR)
// the signature recovers to.
package bitcoinmsg

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/aibtc/wallet-core/internal/bitcoinhash"
	"github.com/aibtc/wallet-core/internal/netparams"
)

var magic = []byte("Bitcoin Signed Message:\n")

// AddressType selects the BIP-137 header-byte range a signature's
// recovery id is encoded into.
type AddressType int

const (
	AddressP2PKHUncompressed AddressType = iota
	AddressP2PKHCompressed
	AddressSegwitP2SH
	AddressSegwitBech32
)

var (
	ErrInvalidPrivateKey    = errors.New("bitcoinmsg: private key must be 32 bytes")
	ErrInvalidSignature     = errors.New("bitcoinmsg: signature must decode to 65 bytes")
	ErrUnsupportedAddrType  = errors.New("bitcoinmsg: unsupported address type")
	ErrInvalidHeaderByte    = errors.New("bitcoinmsg: header byte out of range")
	ErrMessageTooLong       = errors.New("bitcoinmsg: message too long to varint-encode")
)

// headerBase is the BIP-137 header-byte offset for each address type,
// added to the recovery id (0-3) ecdsa.SignCompact/RecoverCompact use.
var headerBase = map[AddressType]byte{
	AddressP2PKHUncompressed: 27,
	AddressP2PKHCompressed:   31,
	AddressSegwitP2SH:        35,
	AddressSegwitBech32:      39,
}

// Digest hashes message the way Bitcoin Core's signed-message scheme
// does: double-SHA256 over varint-length-prefixed magic and message.
func Digest(message []byte) [32]byte {
	buf := make([]byte, 0, len(magic)+len(message)+18)
	buf = appendVarInt(buf, uint64(len(magic)))
	buf = append(buf, magic...)
	buf = appendVarInt(buf, uint64(len(message)))
	buf = append(buf, message...)

	first := sha256.Sum256(buf)
	return sha256.Sum256(first[:])
}

// Sign signs message with privateKey and returns the base64-encoded
// BIP-137 signature for the given address type.
func Sign(message []byte, privateKey []byte, addrType AddressType) (string, error) {
	if len(privateKey) != 32 {
		return "", ErrInvalidPrivateKey
	}
	if uint64(len(message)) > 0xffffffff {
		return "", ErrMessageTooLong
	}
	base, ok := headerBase[addrType]
	if !ok {
		return "", ErrUnsupportedAddrType
	}

	digest := Digest(message)
	priv := secp256k1.PrivKeyFromBytes(privateKey)
	compact := ecdsa.SignCompact(priv, digest[:], true)
	if len(compact) != 65 {
		return "", fmt.Errorf("bitcoinmsg: unexpected compact signature length %d", len(compact))
	}

	recID := compact[0] - 31 // SignCompact(..., true) always uses the compressed base
	sig := make([]byte, 65)
	sig[0] = base + recID
	copy(sig[1:], compact[1:])

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Recover recovers the compressed public key and address type encoded
// in a base64 BIP-137 signature over message.
func Recover(message []byte, signatureBase64 string) (pubKey []byte, addrType AddressType, err error) {
	sig, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return nil, 0, fmt.Errorf("bitcoinmsg: decoding base64 signature: %w", err)
	}
	return recoverFromBytes(message, sig)
}

// RecoverHex is Recover for the legacy 130-character hex signature
// encoding some wallets emit instead of base64.
func RecoverHex(message []byte, signatureHex string) (pubKey []byte, addrType AddressType, err error) {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return nil, 0, fmt.Errorf("bitcoinmsg: decoding hex signature: %w", err)
	}
	return recoverFromBytes(message, sig)
}

func recoverFromBytes(message, sig []byte) ([]byte, AddressType, error) {
	if len(sig) != 65 {
		return nil, 0, ErrInvalidSignature
	}

	header := sig[0]
	addrType, recID, err := classifyHeader(header)
	if err != nil {
		return nil, 0, err
	}

	compact := make([]byte, 65)
	compact[0] = 31 + recID
	copy(compact[1:], sig[1:])

	digest := Digest(message)
	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return nil, 0, fmt.Errorf("bitcoinmsg: recovering public key: %w", err)
	}

	return pub.SerializeCompressed(), addrType, nil
}

// Verify recovers the signer from signatureBase64 over message and reports
// whether the address it implies (under the address class the header
// byte encodes) matches expectedAddress.
func Verify(message []byte, signatureBase64 string, expectedAddress string, network netparams.Network) (address string, match bool, err error) {
	pubKey, addrType, err := Recover(message, signatureBase64)
	if err != nil {
		return "", false, err
	}

	address, err = AddressForType(pubKey, addrType, network)
	if err != nil {
		return "", false, err
	}

	return address, address == expectedAddress, nil
}

// AddressForType derives the address a compressed public key implies under
// the given BIP-137 address class.
func AddressForType(compressedPubKey []byte, addrType AddressType, network netparams.Network) (string, error) {
	params := network.BitcoinParams()
	hash160 := bitcoinhash.Hash160(compressedPubKey)

	switch addrType {
	case AddressP2PKHUncompressed, AddressP2PKHCompressed:
		addr, err := btcutil.NewAddressPubKeyHash(hash160, params)
		if err != nil {
			return "", fmt.Errorf("bitcoinmsg: building P2PKH address: %w", err)
		}
		return addr.EncodeAddress(), nil

	case AddressSegwitBech32:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(hash160, params)
		if err != nil {
			return "", fmt.Errorf("bitcoinmsg: building P2WPKH address: %w", err)
		}
		return addr.EncodeAddress(), nil

	case AddressSegwitP2SH:
		witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(hash160, params)
		if err != nil {
			return "", fmt.Errorf("bitcoinmsg: building witness program: %w", err)
		}
		witnessScript, err := txscript.PayToAddrScript(witnessAddr)
		if err != nil {
			return "", fmt.Errorf("bitcoinmsg: building witness script: %w", err)
		}
		addr, err := btcutil.NewAddressScriptHash(witnessScript, params)
		if err != nil {
			return "", fmt.Errorf("bitcoinmsg: building P2SH-P2WPKH address: %w", err)
		}
		return addr.EncodeAddress(), nil

	default:
		return "", ErrUnsupportedAddrType
	}
}

func classifyHeader(header byte) (AddressType, byte, error) {
	switch {
	case header >= 27 && header <= 30:
		return AddressP2PKHUncompressed, header - 27, nil
	case header >= 31 && header <= 34:
		return AddressP2PKHCompressed, header - 31, nil
	case header >= 35 && header <= 38:
		return AddressSegwitP2SH, header - 35, nil
	case header >= 39 && header <= 42:
		return AddressSegwitBech32, header - 39, nil
	default:
		return 0, 0, ErrInvalidHeaderByte
	}
}

// appendVarInt appends a Bitcoin CompactSize-encoded integer to buf.
func appendVarInt(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		return append(buf, 0xfd, byte(n), byte(n>>8))
	default:
		return append(buf, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
}
