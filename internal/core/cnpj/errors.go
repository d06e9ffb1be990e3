package cnpj

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers of the resolution engine. Every other
// provider-level failure is absorbed into health tracking and the fallback
// path; these three are the only escapes.
var (
	ErrInvalidCNPJ  = errors.New("invalid cnpj")
	ErrUnauthorized = errors.New("certificate provider rejected credentials")
	ErrNotFound     = errors.New("cnpj not found in registry")
)

// ProviderError carries the provider name and HTTP status of a failed
// registry call. It never escapes the engine; it feeds circuit-breaker
// state and the per-call attempt trace.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
