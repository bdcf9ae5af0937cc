// Package metrics provides lightweight, atomic-counter-based metrics for
// the wallet-core operations: derivations, signs, quotes, and x402
// settlements. It is not a full observability stack — a hosting process
// wanting Prometheus/OTel export reads a Snapshot and republishes it.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds counters using atomics for thread safety.
type Metrics struct {
	derivationsTotal atomic.Int64
	derivationErrors atomic.Int64

	signsTotal  atomic.Int64
	signErrors  atomic.Int64

	quotesTotal     atomic.Int64
	quoteErrors     atomic.Int64
	quoteLatencyNs  atomic.Int64

	x402SettlementsTotal atomic.Int64
	x402Retries          atomic.Int64
	x402Failures         atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // intentional global for metrics access
var Global = &Metrics{}

// RecordDerivation records a key-derivation operation.
func (m *Metrics) RecordDerivation(err error) {
	m.derivationsTotal.Add(1)
	if err != nil {
		m.derivationErrors.Add(1)
	}
}

// RecordSign records a signing operation (SIP-018, BIP-137, or BIP-340).
func (m *Metrics) RecordSign(err error) {
	m.signsTotal.Add(1)
	if err != nil {
		m.signErrors.Add(1)
	}
}

// RecordQuote records a price-impact quote call with its duration.
func (m *Metrics) RecordQuote(duration time.Duration, err error) {
	m.quotesTotal.Add(1)
	m.quoteLatencyNs.Add(duration.Nanoseconds())
	if err != nil {
		m.quoteErrors.Add(1)
	}
}

// RecordX402Settlement records a completed x402 payment flow.
func (m *Metrics) RecordX402Settlement(retried bool, err error) {
	m.x402SettlementsTotal.Add(1)
	if retried {
		m.x402Retries.Add(1)
	}
	if err != nil {
		m.x402Failures.Add(1)
	}
}

// RecordCacheHit records a dedup/pool cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records a dedup/pool cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	DerivationsTotal     int64
	DerivationErrors     int64
	SignsTotal           int64
	SignErrors           int64
	QuotesTotal          int64
	QuoteErrors          int64
	QuoteLatencyAvgMs    float64
	X402SettlementsTotal int64
	X402Retries          int64
	X402Failures         int64
	CacheHitRate         float64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	quotes := m.quotesTotal.Load()
	avgMs := 0.0
	if quotes > 0 {
		avgMs = float64(m.quoteLatencyNs.Load()) / float64(quotes) / 1e6
	}

	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Snapshot{
		DerivationsTotal:     m.derivationsTotal.Load(),
		DerivationErrors:     m.derivationErrors.Load(),
		SignsTotal:           m.signsTotal.Load(),
		SignErrors:           m.signErrors.Load(),
		QuotesTotal:          quotes,
		QuoteErrors:          m.quoteErrors.Load(),
		QuoteLatencyAvgMs:    avgMs,
		X402SettlementsTotal: m.x402SettlementsTotal.Load(),
		X402Retries:          m.x402Retries.Load(),
		X402Failures:         m.x402Failures.Load(),
		CacheHitRate:         hitRate,
	}
}

// Reset zeroes all counters. Useful for tests.
func (m *Metrics) Reset() {
	m.derivationsTotal.Store(0)
	m.derivationErrors.Store(0)
	m.signsTotal.Store(0)
	m.signErrors.Store(0)
	m.quotesTotal.Store(0)
	m.quoteErrors.Store(0)
	m.quoteLatencyNs.Store(0)
	m.x402SettlementsTotal.Store(0)
	m.x402Retries.Store(0)
	m.x402Failures.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
}
