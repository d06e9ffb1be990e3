package cnpj

import (
	"sync"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

const (
	// circuitFailureThreshold is how many consecutive failures open the circuit.
	circuitFailureThreshold = 3
	// circuitCooldown is how long the circuit stays open after the last failure.
	circuitCooldown = 5 * time.Minute
)

// ProviderHealth tracks one provider's availability. The circuit-breaker
// state is a derived predicate over counters and elapsed time, never a
// stored enum: once the cooldown elapses the circuit reads closed again
// with no half-open probe step.
type ProviderHealth struct {
	mu sync.Mutex

	name                string
	available           bool
	lastError           string
	errorCount          int64
	consecutiveFailures int
	lastSuccess         time.Time
	lastFailure         time.Time

	clock func() time.Time
}

// NewProviderHealth builds a health record for a provider, created once at
// engine construction and mutated on every attempt.
func NewProviderHealth(name string) *ProviderHealth {
	return &ProviderHealth{
		name:      name,
		available: true,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordSuccess resets the consecutive-failure count and marks the provider
// available.
func (h *ProviderHealth) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.available = true
	h.consecutiveFailures = 0
	h.lastError = ""
	h.lastSuccess = h.clock()
}

// RecordFailure increments failure counters and retains the error message.
func (h *ProviderHealth) RecordFailure(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.available = false
	h.errorCount++
	h.consecutiveFailures++
	h.lastError = msg
	h.lastFailure = h.clock()
}

// CircuitOpen reports whether calls to the provider should be skipped:
// true iff consecutive failures reached the threshold and the last failure
// is still inside the cooldown window.
func (h *ProviderHealth) CircuitOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.circuitOpenLocked()
}

func (h *ProviderHealth) circuitOpenLocked() bool {
	if h.consecutiveFailures < circuitFailureThreshold {
		return false
	}
	if h.lastFailure.IsZero() {
		return false
	}
	return h.clock().Sub(h.lastFailure) < circuitCooldown
}

// Reset clears all counters, an administrative action.
func (h *ProviderHealth) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.available = true
	h.lastError = ""
	h.errorCount = 0
	h.consecutiveFailures = 0
	h.lastSuccess = time.Time{}
	h.lastFailure = time.Time{}
}

// Snapshot copies the current state for observability callers.
func (h *ProviderHealth) Snapshot() core.ProviderHealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := core.ProviderHealthSnapshot{
		Name:                h.name,
		Available:           h.available,
		CircuitOpen:         h.circuitOpenLocked(),
		LastError:           h.lastError,
		ErrorCount:          h.errorCount,
		ConsecutiveFailures: h.consecutiveFailures,
	}
	if !h.lastSuccess.IsZero() {
		t := h.lastSuccess
		snap.LastSuccess = &t
	}
	if !h.lastFailure.IsZero() {
		t := h.lastFailure
		snap.LastFailure = &t
	}
	return snap
}
