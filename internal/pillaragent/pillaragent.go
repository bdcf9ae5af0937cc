// Package pillaragent implements the Pillar smart-wallet agent signer: a
// domain-bound SIP-018 signature over a "pillar-boost" tuple, scoped to
// a single smart-wallet principal, with fresh auth-id generation per
// spec.md §4.I.
package pillaragent

import (
	"sync"
	"time"

	"github.com/aibtc/wallet-core/internal/clarity"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/sip018"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

const (
	domainName    = "smart-wallet-standard"
	domainVersion = "1.0.0"
	pillarTopic   = "pillar-boost"

	// pillarChainID is the domain's chain-id field, pinned to the
	// Stacks mainnet chain-id regardless of the network the signer
	// otherwise targets, per the Pillar smart-wallet contract's domain.
	pillarChainID = netparams.StacksChainIDMainnet
)

// authIDGenerator issues monotonically unique 64-bit auth ids. The
// contract this module signs for dedups by the full (auth-id, message)
// tuple, so wall-clock milliseconds are sufficient as long as repeated
// calls within the same millisecond still produce distinct values.
type authIDGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *authIDGenerator) next(now int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now <= g.last {
		now = g.last + 1
	}
	g.last = now
	return now
}

// Signer is bound to one smart-wallet principal and signs pillar-boost
// requests on its behalf. network governs address recovery only — the
// domain's chain-id is pinned to pillarChainID regardless of network.
type Signer struct {
	principal string
	network   netparams.Network
	ids       authIDGenerator
}

// NewSigner binds a Signer to principal, recovering addresses on network.
func NewSigner(principal string, network netparams.Network) *Signer {
	return &Signer{principal: principal, network: network}
}

// BoostRequest is the pillar-boost operation's parameter set: borrowing
// aeUSDC against sBTC collateral and swapping the proceeds back, subject
// to a minimum sBTC-out slippage floor.
type BoostRequest struct {
	SBTCAmount      uint64
	AeUSDCToBorrow  uint64
	MinSBTCFromSwap uint64
}

// BoostSignature is the signed artifact a Pillar relay expects.
type BoostSignature struct {
	AuthID    int64
	Signature sip018.Signature
	PubKey    []byte
}

// Sign builds the pillar-boost structured-data tuple, assigns a fresh
// auth-id, and signs it with privateKey under this signer's domain.
func (s *Signer) Sign(req BoostRequest, privateKey []byte) (*BoostSignature, error) {
	authID := s.ids.next(time.Now().UnixMilli())

	message := clarity.Tuple(map[string]clarity.Value{
		"topic":              clarity.StringASCII(pillarTopic),
		"auth-id":            clarity.UInt128(uint64(authID)),
		"sbtc-amount":        clarity.UInt128(req.SBTCAmount),
		"aeusdc-to-borrow":   clarity.UInt128(req.AeUSDCToBorrow),
		"min-sbtc-from-swap": clarity.UInt128(req.MinSBTCFromSwap),
	})

	domain := sip018.Domain{
		Name:    domainName,
		Version: domainVersion,
		ChainID: pillarChainID,
		Wallet:  s.principal,
	}

	sig, err := sip018.Sign(domain, message, privateKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneral, "signing pillar-boost request", err)
	}

	pubKey, _, err := sip018.Recover(domain, message, sig, s.network)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneral, "recovering public key after signing", err)
	}

	return &BoostSignature{AuthID: authID, Signature: sig, PubKey: pubKey}, nil
}
