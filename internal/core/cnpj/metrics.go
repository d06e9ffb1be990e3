package cnpj

import (
	"sync"

	"github.com/triagemhq/triagemd/internal/core"
)

// UsageMetrics holds plain per-engine counters. Rates are derived at
// snapshot time, never stored.
type UsageMetrics struct {
	mu sync.Mutex

	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	cacheHits          int64
	fallbackUsed       int64
	providerUsage      map[string]int64
}

// NewUsageMetrics builds a zeroed metrics collector.
func NewUsageMetrics() *UsageMetrics {
	return &UsageMetrics{providerUsage: make(map[string]int64)}
}

// RecordRequest counts one entry into the resolution engine.
func (m *UsageMetrics) RecordRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
}

// RecordSuccess counts a call that handed the caller a record, real or not.
func (m *UsageMetrics) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successfulRequests++
}

// RecordFailure counts a call that surfaced an error to the caller.
func (m *UsageMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRequests++
}

// RecordCacheHit counts a lookup served from the cache.
func (m *UsageMetrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// RecordFallback counts a synthetic record handed to a caller.
func (m *UsageMetrics) RecordFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUsed++
}

// RecordProviderUse counts a successful fetch against a named provider.
func (m *UsageMetrics) RecordProviderUse(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerUsage[provider]++
}

// Snapshot copies the counters and derives success and cache-hit rates,
// both zero when no requests were recorded.
func (m *UsageMetrics) Snapshot() core.UsageMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := core.UsageMetricsSnapshot{
		TotalRequests:      m.totalRequests,
		SuccessfulRequests: m.successfulRequests,
		FailedRequests:     m.failedRequests,
		CacheHits:          m.cacheHits,
		FallbackUsed:       m.fallbackUsed,
		ProviderUsage:      make(map[string]int64, len(m.providerUsage)),
	}
	for name, count := range m.providerUsage {
		snap.ProviderUsage[name] = count
	}
	if m.totalRequests > 0 {
		snap.SuccessRate = float64(m.successfulRequests) / float64(m.totalRequests) * 100
		snap.CacheHitRate = float64(m.cacheHits) / float64(m.totalRequests) * 100
	}
	return snap
}

// Clear resets every counter in place.
func (m *UsageMetrics) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests = 0
	m.successfulRequests = 0
	m.failedRequests = 0
	m.cacheHits = 0
	m.fallbackUsed = 0
	m.providerUsage = make(map[string]int64)
}
