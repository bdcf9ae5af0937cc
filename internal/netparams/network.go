// Package netparams defines the two networks this module operates
// against and the small set of chain-level constants that depend on
// which one is active.
package netparams

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies which Bitcoin/Stacks network a wallet is bound to.
type Network string

const (
	// Mainnet is Bitcoin mainnet paired with the Stacks mainnet.
	Mainnet Network = "mainnet"

	// Testnet is Bitcoin testnet3 paired with the Stacks testnet.
	Testnet Network = "testnet"
)

// StacksChainID values per spec.md's external interfaces: these are the
// chain-id integers embedded in every SIP-018 domain and Pillar signature.
const (
	StacksChainIDMainnet uint32 = 1
	StacksChainIDTestnet uint32 = 2147483648
)

// Valid reports whether n is a recognized network tag.
func (n Network) Valid() bool {
	return n == Mainnet || n == Testnet
}

// StacksChainID returns the chain-id constant for this network.
func (n Network) StacksChainID() uint32 {
	if n == Mainnet {
		return StacksChainIDMainnet
	}
	return StacksChainIDTestnet
}

// BitcoinParams returns the btcd chain parameters for this network.
func (n Network) BitcoinParams() *chaincfg.Params {
	if n == Mainnet {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// C32Version returns the one-byte Stacks address version used by the c32
// address encoder for a standard singlesig (P2PKH-style) principal.
func (n Network) C32Version() byte {
	if n == Mainnet {
		return 22 // mainnet P (P2PKH-style) version
	}
	return 26 // testnet P version
}

// Parse validates and normalizes a network string.
func Parse(s string) (Network, error) {
	n := Network(s)
	if !n.Valid() {
		return "", fmt.Errorf("netparams: unknown network %q", s)
	}
	return n, nil
}
