package cnpj

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

// EngineConfig carries the tunables for a resolution engine.
type EngineConfig struct {
	CacheTTL time.Duration
}

// Engine resolves CNPJs across an ordered list of providers with
// per-provider circuit breakers, a TTL cache, usage metrics, and a
// synthetic last-resort fallback. All state is engine-owned; there are no
// package-level registries.
type Engine struct {
	providers   []Provider
	health      map[string]*ProviderHealth
	cache       *Cache
	metrics     *UsageMetrics
	certificate *CertificateClient
	clock       func() time.Time

	// onExhausted receives the per-call attempt trace whenever resolution
	// falls through to the synthetic record.
	onExhausted func(cnpj14 string, trace []string)
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithCertificateClient wires the credentialed certificate endpoint.
func WithCertificateClient(c *CertificateClient) EngineOption {
	return func(e *Engine) { e.certificate = c }
}

// WithClock injects a time source, used by tests to drive the breaker
// cooldown window.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) { e.clock = clock }
}

// WithExhaustedHook observes the attempt trace of lookups that ended in a
// synthetic record, typically to log it.
func WithExhaustedHook(hook func(cnpj14 string, trace []string)) EngineOption {
	return func(e *Engine) { e.onExhausted = hook }
}

// NewEngine builds an engine over the given providers, attempted in the
// order supplied. One health record per provider is created here and lives
// for the life of the engine.
func NewEngine(cfg EngineConfig, providers []Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		providers: providers,
		health:    make(map[string]*ProviderHealth, len(providers)),
		cache:     NewCache(cfg.CacheTTL),
		metrics:   NewUsageMetrics(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, p := range providers {
		e.health[p.Name()] = NewProviderHealth(p.Name())
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, h := range e.health {
		h.clock = e.clock
	}
	e.cache.clock = e.clock
	return e
}

// Resolve looks up a CNPJ. The only error it can return is ErrInvalidCNPJ;
// once the identifier passes validation the caller always receives a
// record, synthetic if every provider was skipped or failed. Callers that
// need real registry data must check record.Source.
func (e *Engine) Resolve(ctx context.Context, raw string) (*core.CompanyRecord, error) {
	if !Valid(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCNPJ, raw)
	}
	cnpj14 := Clean(raw)

	e.metrics.RecordRequest()

	if cached := e.cache.Get(cnpj14); cached != nil {
		e.metrics.RecordCacheHit()
		e.metrics.RecordSuccess()
		return cached, nil
	}

	var trace []string
	for _, provider := range e.providers {
		health := e.health[provider.Name()]

		if health.CircuitOpen() {
			trace = append(trace, provider.Name()+": skipped, circuit open")
			continue
		}
		if provider.RequiresCredential() && !provider.HasCredential() {
			trace = append(trace, provider.Name()+": skipped, no credential")
			continue
		}

		record, err := provider.Fetch(ctx, cnpj14)
		if err != nil {
			health.RecordFailure(err.Error())
			trace = append(trace, err.Error())
			continue
		}

		health.RecordSuccess()
		e.cache.Put(record)
		e.metrics.RecordSuccess()
		e.metrics.RecordProviderUse(provider.Name())
		return record, nil
	}

	// Every provider skipped or failed. The workflow must keep moving, so
	// hand the caller a synthetic record tagged with its provenance instead
	// of an error.
	if e.onExhausted != nil {
		e.onExhausted(cnpj14, trace)
	}
	record := e.syntheticRecord(cnpj14)
	e.metrics.RecordFallback()
	e.metrics.RecordSuccess()
	return record, nil
}

// syntheticRecord builds the deterministic placeholder handed out when no
// registry could be reached.
func (e *Engine) syntheticRecord(cnpj14 string) *core.CompanyRecord {
	record := &core.CompanyRecord{
		CNPJ:              cnpj14,
		CNPJFormatted:     Format(cnpj14),
		RazaoSocial:       "EMPRESA NAO IDENTIFICADA LTDA",
		NomeFantasia:      "Empresa Nao Identificada",
		SituacaoCadastral: "DESCONHECIDA",
		Logradouro:        "NAO DISPONIVEL",
		UF:                "SP",
		Municipio:         "SAO PAULO",
		Source:            core.SourceFallback,
		ConsultedAt:       e.clock(),
	}
	record.EnderecoCompleto = composeEndereco(record)
	return record
}

// DownloadCertificate fetches the certificate PDF for a CNPJ. Invalid
// identifiers fail with ErrInvalidCNPJ; an explicit 401 or 404 from the
// credentialed endpoint surfaces as ErrUnauthorized or ErrNotFound. Every
// other condition, including a missing credential, yields a structurally
// valid placeholder PDF so the workflow can continue.
func (e *Engine) DownloadCertificate(ctx context.Context, raw string) ([]byte, error) {
	if !Valid(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCNPJ, raw)
	}
	cnpj14 := Clean(raw)

	if e.certificate == nil || !e.certificate.HasCredential() {
		return placeholderPDF(Format(cnpj14)), nil
	}

	content, err := e.certificate.Download(ctx, cnpj14)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return placeholderPDF(Format(cnpj14)), nil
	}
	return content, nil
}

// Metrics returns a snapshot of the engine's usage counters.
func (e *Engine) Metrics() core.UsageMetricsSnapshot {
	return e.metrics.Snapshot()
}

// ProviderHealth returns a snapshot of every provider's health keyed by name.
func (e *Engine) ProviderHealth() map[string]core.ProviderHealthSnapshot {
	out := make(map[string]core.ProviderHealthSnapshot, len(e.health))
	for name, h := range e.health {
		out[name] = h.Snapshot()
	}
	return out
}

// ClearCache drops every cached record and returns how many were removed.
func (e *Engine) ClearCache() int {
	return e.cache.Clear()
}

// ClearMetrics zeroes every usage counter.
func (e *Engine) ClearMetrics() {
	e.metrics.Clear()
}

// ResetCircuitBreakers resets every provider health record.
func (e *Engine) ResetCircuitBreakers() {
	for _, h := range e.health {
		h.Reset()
	}
}
