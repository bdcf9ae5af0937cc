// Package quoter computes price impact across an ordered XYK pool route
// per spec.md §4.J: fee-excluded per-hop impact, fee-inclusive per-hop
// output, and a combined-impact severity classification.
package quoter

import (
	"context"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aibtc/wallet-core/internal/metrics"
	"github.com/aibtc/wallet-core/internal/stacksapi"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

// impactScale is the integer-safe scaling factor spec.md §4.J mandates
// for per-hop impact: multiply by it, divide, and only convert to float
// once at the very end.
const impactScale = 1_000_000

const basisPointsDenominator = 10_000

// Severity buckets per spec.md §4.J.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeveritySevere Severity = "severe"
)

// ErrPartialRoute is returned when one hop of a multi-hop route fails to
// fetch; per spec.md §4.J the quoter then suppresses price-impact
// reporting entirely rather than report a partial, misleading number.
var ErrPartialRoute = apperr.New(apperr.KindUpstreamFailure, "one or more hops in the route failed to fetch; suppressing price impact")

// PoolReader reads one pool's reserve and fee state. *stacksapi.Client
// satisfies this directly.
type PoolReader interface {
	GetPoolState(ctx context.Context, poolID string) (stacksapi.PoolState, error)
}

// Hop identifies one pool in a route and which side of it the swap
// enters on.
type Hop struct {
	PoolID      string
	Direction   Direction
	FeeBasisPts uint64 // total fee (protocol + any other) charged on this hop
}

// Direction selects which reserve is the input side for a hop.
type Direction int

const (
	// DirectionXToY swaps the pool's X-denominated token for its
	// Y-denominated token.
	DirectionXToY Direction = iota
	DirectionYToX
)

// HopResult is one hop's computed contribution to the route.
type HopResult struct {
	PoolID       string
	Impact       float64 // fee-excluded, in [0, 1)
	OutputAmount uint64  // fee-inclusive amount handed to the next hop
}

// Quote is the combined result of quoting an entire route.
type Quote struct {
	Hops           []HopResult
	CombinedImpact float64 // in [0, 1)
	Severity       Severity
	TotalFeeBps    uint64
	FinalOutput    uint64
}

// Quoter computes price impact across routes of pools read through a
// PoolReader.
type Quoter struct {
	reader PoolReader
}

// New builds a Quoter backed by reader.
func New(reader PoolReader) *Quoter {
	return &Quoter{reader: reader}
}

// Quote fetches every hop's pool state concurrently, then walks the
// route computing per-hop impact and fee-inclusive output. If any hop's
// fetch fails on a route with more than one hop, price impact is
// suppressed entirely and ErrPartialRoute is returned; a single-hop
// route instead surfaces the fetch error directly.
func (q *Quoter) Quote(ctx context.Context, hops []Hop, inputAmount uint64) (*Quote, error) {
	start := time.Now()
	quote, err := q.quote(ctx, hops, inputAmount)
	metrics.Global.RecordQuote(time.Since(start), err)
	return quote, err
}

func (q *Quoter) quote(ctx context.Context, hops []Hop, inputAmount uint64) (*Quote, error) {
	if len(hops) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "route must contain at least one hop")
	}

	states, err := q.fetchAll(ctx, hops)
	if err != nil {
		if len(hops) > 1 {
			return nil, apperr.Wrap(apperr.KindUpstreamFailure, ErrPartialRoute.Message, err)
		}
		return nil, err
	}

	hopResults := make([]HopResult, len(hops))
	survivalProduct := 1.0
	var totalFeeBps uint64
	x := inputAmount

	for i, hop := range hops {
		state := states[i]
		reserveIn, reserveOut := reservesForDirection(state, hop.Direction)

		impact := scaledImpact(x, reserveIn)
		survivalProduct *= 1 - impact

		output := feeInclusiveOutput(x, reserveIn, reserveOut, hop.FeeBasisPts)

		hopResults[i] = HopResult{PoolID: hop.PoolID, Impact: impact, OutputAmount: output}
		totalFeeBps += hop.FeeBasisPts
		x = output
	}

	combined := 1 - survivalProduct

	return &Quote{
		Hops:           hopResults,
		CombinedImpact: combined,
		Severity:       severityFor(combined),
		TotalFeeBps:    totalFeeBps,
		FinalOutput:    x,
	}, nil
}

// fetchAll reads every hop's pool state concurrently, each bounded by
// PoolReadTimeout at the reader's discretion; the first hop error
// cancels the remaining fetches.
func (q *Quoter) fetchAll(ctx context.Context, hops []Hop) ([]stacksapi.PoolState, error) {
	states := make([]stacksapi.PoolState, len(hops))

	g, gctx := errgroup.WithContext(ctx)
	for i, hop := range hops {
		i, hop := i, hop
		g.Go(func() error {
			state, err := q.reader.GetPoolState(gctx, hop.PoolID)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

func reservesForDirection(state stacksapi.PoolState, dir Direction) (reserveIn, reserveOut uint64) {
	if dir == DirectionXToY {
		return state.XBalance, state.YBalance
	}
	return state.YBalance, state.XBalance
}

// scaledImpact computes x/(reserveIn+x) with integer-safe scaling via
// big.Int (reserves and amounts are smallest-unit integers that can
// overflow uint64 once multiplied), converting to float only at the end.
func scaledImpact(x, reserveIn uint64) float64 {
	denominator := new(big.Int).SetUint64(reserveIn)
	denominator.Add(denominator, new(big.Int).SetUint64(x))
	if denominator.Sign() == 0 {
		return 0
	}

	scaled := new(big.Int).Mul(new(big.Int).SetUint64(x), big.NewInt(impactScale))
	scaled.Div(scaled, denominator)

	result, _ := new(big.Float).Quo(
		new(big.Float).SetInt(scaled),
		big.NewFloat(impactScale),
	).Float64()
	return result
}

// feeInclusiveOutput computes (x*(10000-feeBps)*reserveOut) /
// (reserveIn*10000 + x*(10000-feeBps)), per spec.md §4.J.
func feeInclusiveOutput(x, reserveIn, reserveOut, feeBps uint64) uint64 {
	if feeBps > basisPointsDenominator {
		feeBps = basisPointsDenominator
	}
	netMultiplier := big.NewInt(basisPointsDenominator - int64(feeBps))

	bigX := new(big.Int).SetUint64(x)
	bigReserveIn := new(big.Int).SetUint64(reserveIn)
	bigReserveOut := new(big.Int).SetUint64(reserveOut)

	numerator := new(big.Int).Mul(bigX, netMultiplier)
	numerator.Mul(numerator, bigReserveOut)

	denominator := new(big.Int).Mul(bigReserveIn, big.NewInt(basisPointsDenominator))
	xTimesNet := new(big.Int).Mul(bigX, netMultiplier)
	denominator.Add(denominator, xTimesNet)

	if denominator.Sign() == 0 {
		return 0
	}

	result := new(big.Int).Div(numerator, denominator)
	return result.Uint64()
}

func severityFor(combinedImpact float64) Severity {
	switch {
	case combinedImpact < 0.01:
		return SeverityLow
	case combinedImpact < 0.03:
		return SeverityMedium
	case combinedImpact < 0.10:
		return SeverityHigh
	default:
		return SeveritySevere
	}
}
