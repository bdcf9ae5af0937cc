package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aibtc/wallet-core/internal/metrics"
)

func TestRecordDerivation_CountsErrorsSeparately(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordDerivation(nil)
	m.RecordDerivation(errors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.DerivationsTotal)
	assert.Equal(t, int64(1), snap.DerivationErrors)
}

func TestRecordSign_CountsErrorsSeparately(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordSign(nil)
	m.RecordSign(nil)
	m.RecordSign(errors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.SignsTotal)
	assert.Equal(t, int64(1), snap.SignErrors)
}

func TestRecordQuote_ComputesAverageLatency(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordQuote(10*time.Millisecond, nil)
	m.RecordQuote(30*time.Millisecond, nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.QuotesTotal)
	assert.InDelta(t, 20.0, snap.QuoteLatencyAvgMs, 0.01)
}

func TestRecordX402Settlement_CountsRetriesAndFailures(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordX402Settlement(false, nil)
	m.RecordX402Settlement(true, nil)
	m.RecordX402Settlement(true, errors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.X402SettlementsTotal)
	assert.Equal(t, int64(2), snap.X402Retries)
	assert.Equal(t, int64(1), snap.X402Failures)
}

func TestCacheHitRate_ComputedAsPercentage(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	snap := m.Snapshot()
	assert.InDelta(t, 75.0, snap.CacheHitRate, 0.01)
}

func TestCacheHitRate_ZeroWhenNoSamples(t *testing.T) {
	m := &metrics.Metrics{}
	snap := m.Snapshot()
	assert.Zero(t, snap.CacheHitRate)
}

func TestReset_ZeroesAllCounters(t *testing.T) {
	m := &metrics.Metrics{}
	m.RecordDerivation(errors.New("boom"))
	m.RecordSign(nil)
	m.RecordQuote(5*time.Millisecond, nil)
	m.RecordX402Settlement(true, nil)
	m.RecordCacheHit()

	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.DerivationsTotal)
	assert.Zero(t, snap.SignsTotal)
	assert.Zero(t, snap.QuotesTotal)
	assert.Zero(t, snap.X402SettlementsTotal)
	assert.Zero(t, snap.CacheHitRate)
}
