// Package sip018 implements SIP-018 structured-data signing: domain and
// message hashing over Clarity values, and recoverable ECDSA signatures
// over the resulting digest.
package sip018

import (
	"fmt"

	"github.com/aibtc/wallet-core/internal/clarity"
	"github.com/aibtc/wallet-core/internal/keyderiv"
)

// Domain is the `domain` tuple every SIP-018 signature binds to. Wallet is
// optional — the Pillar agent signer sets it to the smart-wallet
// principal; a plain SIP-018 signature omits it.
type Domain struct {
	Name    string
	Version string
	ChainID uint32
	Wallet  string // optional Stacks principal (c32 address), empty if unused
}

// Value builds the Clarity tuple this domain serializes to. Wallet, when
// set, is decoded into a genuine Clarity principal (not a string) since
// that is the type the smart-wallet contract's domain hash is computed
// over.
func (d Domain) Value() (clarity.Value, error) {
	fields := map[string]clarity.Value{
		"name":     clarity.StringASCII(d.Name),
		"version":  clarity.StringASCII(d.Version),
		"chain-id": clarity.UInt128(uint64(d.ChainID)),
	}
	if d.Wallet != "" {
		version, hash160, contractName, err := keyderiv.DecodeStacksAddress(d.Wallet)
		if err != nil {
			return clarity.Value{}, fmt.Errorf("sip018: decoding wallet principal: %w", err)
		}
		if contractName != "" {
			fields["wallet"] = clarity.ContractPrincipal(version, hash160, contractName)
		} else {
			fields["wallet"] = clarity.StandardPrincipal(version, hash160)
		}
	}
	return clarity.Tuple(fields), nil
}
