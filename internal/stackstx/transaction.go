// Package stackstx builds and signs the two Stacks transaction shapes
// the x402 payment engine needs per spec.md §4.K: a plain STX token
// transfer and an sBTC `transfer` contract call, both constructed as
// sponsored (origin pays fee 0; a sponsor fills in the fee and its own
// spending condition before broadcast). The STX transfer and the
// sponsor's own fee output use post-condition mode Allow (the sponsor
// doesn't know its own fee beforehand); the sBTC transfer leg uses Deny
// plus an explicit equality post-condition, since its amount is always
// known exactly.
package stackstx

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/aibtc/wallet-core/internal/bitcoinhash"
	"github.com/aibtc/wallet-core/internal/clarity"
)

// Transaction-level constants, per the Stacks transaction wire format.
const (
	VersionMainnet = 0x00
	VersionTestnet = 0x80

	authTypeStandard  = 0x04
	authTypeSponsored = 0x05

	hashModeP2PKH = 0x00

	keyEncodingCompressed = 0x00

	anchorModeAny = 0x03

	// PostConditionModeAllow permits the transaction to affect balances
	// not covered by an explicit post-condition — used for the STX
	// transfer leg and the sponsor's own fee output.
	PostConditionModeAllow = 0x01
	// PostConditionModeDeny forbids any balance change not covered by an
	// explicit post-condition — used for the sBTC transfer leg, paired
	// with an equality FungibleConditionCode post-condition.
	PostConditionModeDeny = 0x02

	payloadTypeTokenTransfer = 0x00
	payloadTypeContractCall  = 0x02

	memoLength = 34

	sigHashSuffixLength = 1 + 8 + 8 // auth-type byte + fee (8 BE) + nonce (8 BE)

	// Post-condition principal kinds. Distinct from the Clarity value
	// tags StandardPrincipal/ContractPrincipal serialize to — the
	// post-conditions list uses its own, simpler principal encoding.
	pcPrincipalStandard = 0x02
	pcPrincipalContract = 0x03

	// postConditionTypeFungible marks a fungible-token post-condition,
	// the only kind this package emits (for the sBTC transfer leg).
	postConditionTypeFungible = 0x01
)

// FungibleConditionCode is the comparison a fungible-token post-condition
// enforces between its declared Amount and the actual transferred amount.
type FungibleConditionCode byte

// FungibleConditionEqual requires the transferred amount equal Amount
// exactly — the sBTC transfer leg's amount is always known, so the
// strictest comparison is used.
const FungibleConditionEqual FungibleConditionCode = 0x01

var (
	// ErrInvalidPrivateKey indicates a malformed origin signing key.
	ErrInvalidPrivateKey = errors.New("stackstx: invalid private key")
	// ErrMemoTooLong indicates a memo longer than the fixed 34-byte field.
	ErrMemoTooLong = errors.New("stackstx: memo exceeds 34 bytes")
)

// SpendingCondition is a single-signature P2PKH spending condition.
type SpendingCondition struct {
	Signer      [20]byte // hash160 of the signer's compressed public key
	Nonce       uint64
	Fee         uint64
	KeyEncoding byte
	Signature   [65]byte
}

func (sc SpendingCondition) serialize() []byte {
	buf := make([]byte, 0, 1+20+8+8+1+65)
	buf = append(buf, hashModeP2PKH)
	buf = append(buf, sc.Signer[:]...)
	buf = binary.BigEndian.AppendUint64(buf, sc.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, sc.Fee)
	buf = append(buf, sc.KeyEncoding)
	buf = append(buf, sc.Signature[:]...)
	return buf
}

// PostCondition is a single fungible-token post-condition, constraining
// how much of one asset a named principal may send.
type PostCondition struct {
	Principal     clarity.Principal // account the condition constrains (the sender)
	AssetContract clarity.Principal // contract principal owning the asset (ContractName set)
	AssetName     string
	Code          FungibleConditionCode
	Amount        uint64
}

func (pc PostCondition) serialize() []byte {
	buf := []byte{postConditionTypeFungible}
	buf = append(buf, serializePostConditionPrincipal(pc.Principal)...)
	buf = append(buf, pc.AssetContract.Version)
	buf = append(buf, pc.AssetContract.Hash160...)
	buf = append(buf, lengthPrefixedASCII(pc.AssetContract.ContractName)...)
	buf = append(buf, lengthPrefixedASCII(pc.AssetName)...)
	buf = append(buf, byte(pc.Code))
	buf = binary.BigEndian.AppendUint64(buf, pc.Amount)
	return buf
}

func serializePostConditionPrincipal(p clarity.Principal) []byte {
	if p.IsContract() {
		buf := []byte{pcPrincipalContract, p.Version}
		buf = append(buf, p.Hash160...)
		return append(buf, lengthPrefixedASCII(p.ContractName)...)
	}
	buf := []byte{pcPrincipalStandard, p.Version}
	return append(buf, p.Hash160...)
}

// Transaction is an unsigned or partially-signed Stacks transaction. The
// sponsor field is present (authTypeSponsored) but zeroed: x402's
// relay/sponsor fills in its own nonce, fee, and signature before
// broadcast.
type Transaction struct {
	Version           byte
	ChainID           uint32
	Origin            SpendingCondition
	Sponsor           SpendingCondition
	PostConditionMode byte
	PostConditions    []PostCondition
	Payload           []byte
}

// NewTokenTransfer builds an unsigned sponsored STX token-transfer
// transaction, fee 0, to be signed with SignOrigin.
func NewTokenTransfer(version byte, chainID uint32, nonce uint64, recipient clarity.Principal, amount uint64, memo string) (*Transaction, error) {
	if len(memo) > memoLength {
		return nil, ErrMemoTooLong
	}

	recipientBytes, err := clarity.Serialize(principalValue(recipient))
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 1+64+8+memoLength)
	payload = append(payload, payloadTypeTokenTransfer)
	payload = append(payload, recipientBytes...)
	payload = binary.BigEndian.AppendUint64(payload, amount)

	memoBuf := make([]byte, memoLength)
	copy(memoBuf, memo)
	payload = append(payload, memoBuf...)

	return &Transaction{
		Version:           version,
		ChainID:           chainID,
		Origin:            SpendingCondition{Nonce: nonce, Fee: 0, KeyEncoding: keyEncodingCompressed},
		PostConditionMode: PostConditionModeAllow,
		Payload:           payload,
	}, nil
}

// NewContractCall builds an unsigned sponsored contract-call
// transaction invoking functionName on contract with args, fee 0.
func NewContractCall(version byte, chainID uint32, nonce uint64, contract clarity.Principal, functionName string, args []clarity.Value) (*Transaction, error) {
	contractBytes, err := clarity.Serialize(principalValue(contract))
	if err != nil {
		return nil, err
	}

	payload := []byte{payloadTypeContractCall}
	payload = append(payload, contractBytes...)
	payload = append(payload, lengthPrefixedASCII(contract.ContractName)...)
	payload = append(payload, lengthPrefixedASCII(functionName)...)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(args)))
	for _, arg := range args {
		encoded, err := clarity.Serialize(arg)
		if err != nil {
			return nil, err
		}
		payload = append(payload, encoded...)
	}

	return &Transaction{
		Version:           version,
		ChainID:           chainID,
		Origin:            SpendingCondition{Nonce: nonce, Fee: 0, KeyEncoding: keyEncodingCompressed},
		PostConditionMode: PostConditionModeAllow,
		Payload:           payload,
	}, nil
}

// NewSBTCTransfer builds an unsigned sponsored sBTC `transfer` contract
// call — transfer(amount, sender, recipient, none) — on contract, with
// post-condition mode Deny and a single equality post-condition
// constraining sender's sBTC balance to exactly amount. This is the
// principal's sBTC transfer leg; the sponsor's own fee output is a
// separate, Allow-mode spending condition the sponsor fills in itself.
func NewSBTCTransfer(version byte, chainID uint32, nonce uint64, contract clarity.Principal, sender, recipient clarity.Principal, amount uint64) (*Transaction, error) {
	tx, err := NewContractCall(version, chainID, nonce, contract, "transfer", []clarity.Value{
		clarity.UInt128(amount),
		principalValue(sender),
		principalValue(recipient),
		clarity.None(),
	})
	if err != nil {
		return nil, err
	}

	tx.PostConditionMode = PostConditionModeDeny
	tx.PostConditions = []PostCondition{{
		Principal:     sender,
		AssetContract: contract,
		AssetName:     contract.ContractName,
		Code:          FungibleConditionEqual,
		Amount:        amount,
	}}
	return tx, nil
}

func principalValue(p clarity.Principal) clarity.Value {
	if p.IsContract() {
		return clarity.ContractPrincipal(p.Version, p.Hash160, p.ContractName)
	}
	return clarity.StandardPrincipal(p.Version, p.Hash160)
}

func lengthPrefixedASCII(s string) []byte {
	buf := make([]byte, 0, 1+len(s))
	buf = append(buf, byte(len(s)))
	return append(buf, []byte(s)...)
}

// SignOrigin computes the origin spending condition's signature over tx
// with fee 0 and the given nonce, using the two-round Stacks sighash
// (presign hash, then a second round folding in auth-type/fee/nonce), and
// fills Origin.Signer/Signature in place.
func (tx *Transaction) SignOrigin(privateKey []byte) error {
	if len(privateKey) != 32 {
		return ErrInvalidPrivateKey
	}
	priv := secp256k1.PrivKeyFromBytes(privateKey)
	pub := priv.PubKey().SerializeCompressed()
	copy(tx.Origin.Signer[:], bitcoinhash.Hash160(pub))

	presign := tx.presignHash()
	sigHash := foldSigHash(presign, authTypeSponsored, tx.Origin.Fee, tx.Origin.Nonce)

	compact := ecdsa.SignCompact(priv, sigHash[:], true)
	// decred's compact signature is header||r||s; the Stacks wire format
	// places the raw recovery id first followed by r||s, so the header
	// byte is translated back to a 0-3 recovery id.
	var sig [65]byte
	sig[0] = compact[0] - compressedRecoveryBase
	copy(sig[1:], compact[1:])
	tx.Origin.Signature = sig

	return nil
}

const compressedRecoveryBase = 31

// presignHash hashes the transaction with both spending conditions'
// mutable fields (nonce, fee, signature) zeroed, per the Stacks signing
// algorithm's first round.
func (tx *Transaction) presignHash() [32]byte {
	cleared := *tx
	cleared.Origin.Nonce = 0
	cleared.Origin.Fee = 0
	cleared.Origin.Signature = [65]byte{}
	cleared.Sponsor = SpendingCondition{}
	return sha512_256(cleared.serializeUnsigned(authTypeSponsored))
}

func foldSigHash(presign [32]byte, authType byte, fee, nonce uint64) [32]byte {
	buf := make([]byte, 0, 32+sigHashSuffixLength)
	buf = append(buf, presign[:]...)
	buf = append(buf, authType)
	buf = binary.BigEndian.AppendUint64(buf, fee)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return sha512_256(buf)
}

func sha512_256(data []byte) [32]byte {
	sum := sha512.Sum512_256(data)
	return sum
}

// serializeUnsigned serializes everything but the origin spending
// condition's signature bytes are included verbatim (zeroed by the
// caller when computing the presign hash).
func (tx *Transaction) serializeUnsigned(authType byte) []byte {
	buf := make([]byte, 0, 256+len(tx.Payload))
	buf = append(buf, tx.Version)
	buf = binary.BigEndian.AppendUint32(buf, tx.ChainID)
	buf = append(buf, authType)
	buf = append(buf, tx.Origin.serialize()...)
	if authType == authTypeSponsored {
		buf = append(buf, tx.Sponsor.serialize()...)
	}
	buf = append(buf, anchorModeAny)
	buf = append(buf, tx.PostConditionMode)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tx.PostConditions)))
	for _, pc := range tx.PostConditions {
		buf = append(buf, pc.serialize()...)
	}
	buf = append(buf, tx.Payload...)
	return buf
}

// Serialize produces the final wire bytes of tx, authType sponsored,
// including whatever signature bytes are currently set (zero until
// SignOrigin and the sponsor's own signing pass have both run).
func (tx *Transaction) Serialize() []byte {
	return tx.serializeUnsigned(authTypeSponsored)
}
