package cnpj

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/core"
)

const validCNPJ = "11222333000181"

// stubProvider scripts fetch outcomes for engine tests.
type stubProvider struct {
	name      string
	needsCred bool
	hasCred   bool
	calls     int
	fetch     func(call int) (*core.CompanyRecord, error)
}

func (s *stubProvider) Name() string             { return s.name }
func (s *stubProvider) RequiresCredential() bool { return s.needsCred }
func (s *stubProvider) HasCredential() bool      { return s.hasCred }

func (s *stubProvider) Fetch(ctx context.Context, cnpj14 string) (*core.CompanyRecord, error) {
	s.calls++
	return s.fetch(s.calls)
}

func okRecord(name string, source core.Source) func(int) (*core.CompanyRecord, error) {
	return func(int) (*core.CompanyRecord, error) {
		return &core.CompanyRecord{
			CNPJ:          validCNPJ,
			CNPJFormatted: Format(validCNPJ),
			RazaoSocial:   name,
			Source:        source,
			ConsultedAt:   time.Now().UTC(),
		}, nil
	}
}

func alwaysFail(provider string) func(int) (*core.CompanyRecord, error) {
	return func(int) (*core.CompanyRecord, error) {
		return nil, &ProviderError{Provider: provider, StatusCode: 500, Err: errors.New("boom")}
	}
}

func TestResolveInvalidCNPJFailsClosed(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: okRecord("EMPRESA", core.SourceBrasilAPI)}
	engine := NewEngine(EngineConfig{}, []Provider{primary})

	_, err := engine.Resolve(context.Background(), "00000000000000")
	require.True(t, errors.Is(err, ErrInvalidCNPJ))
	require.Zero(t, primary.calls, "no provider may be contacted for an invalid identifier")
	require.Zero(t, engine.Metrics().TotalRequests, "validation failures are not counted as requests")
}

func TestResolvePrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: okRecord("EMPRESA", core.SourceBrasilAPI)}
	secondary := &stubProvider{name: "CNPJ.ws", needsCred: true, hasCred: true, fetch: okRecord("EMPRESA", core.SourceCNPJWS)}
	engine := NewEngine(EngineConfig{}, []Provider{primary, secondary})

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, core.SourceBrasilAPI, record.Source)
	require.Zero(t, secondary.calls, "providers are attempted in fixed priority order")

	snap := engine.Metrics()
	require.EqualValues(t, 1, snap.TotalRequests)
	require.EqualValues(t, 1, snap.SuccessfulRequests)
	require.EqualValues(t, 1, snap.ProviderUsage["BrasilAPI"])
}

func TestResolveSecondHitServedFromCache(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: okRecord("EMPRESA", core.SourceBrasilAPI)}
	engine := NewEngine(EngineConfig{}, []Provider{primary})

	_, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.NotNil(t, record.CachedAt)
	require.Equal(t, 1, primary.calls)

	snap := engine.Metrics()
	require.EqualValues(t, 2, snap.TotalRequests)
	require.EqualValues(t, 1, snap.CacheHits)
	require.InDelta(t, 50.0, snap.CacheHitRate, 1e-9)
}

func TestResolveFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: alwaysFail("BrasilAPI")}
	secondary := &stubProvider{name: "CNPJ.ws", needsCred: true, hasCred: true, fetch: okRecord("EMPRESA", core.SourceCNPJWS)}
	engine := NewEngine(EngineConfig{}, []Provider{primary, secondary})

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, core.SourceCNPJWS, record.Source)

	health := engine.ProviderHealth()
	require.EqualValues(t, 1, health["BrasilAPI"].ErrorCount)
	require.True(t, health["CNPJ.ws"].Available)
}

func TestResolveSkipsSecondaryWithoutCredential(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: alwaysFail("BrasilAPI")}
	secondary := &stubProvider{name: "CNPJ.ws", needsCred: true, hasCred: false, fetch: okRecord("EMPRESA", core.SourceCNPJWS)}
	engine := NewEngine(EngineConfig{}, []Provider{primary, secondary})

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, core.SourceFallback, record.Source)
	require.Zero(t, secondary.calls, "credential-less providers are skipped, not attempted")

	// The skip is not a failure against the provider's circuit.
	require.Zero(t, engine.ProviderHealth()["CNPJ.ws"].ErrorCount)
}

func TestResolveOpenCircuitSkipsPrimary(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	primary := &stubProvider{name: "BrasilAPI", fetch: alwaysFail("BrasilAPI")}
	secondary := &stubProvider{name: "CNPJ.ws", needsCred: true, hasCred: true, fetch: okRecord("EMPRESA", core.SourceCNPJWS)}
	engine := NewEngine(EngineConfig{}, []Provider{primary, secondary},
		WithClock(func() time.Time { return now }))

	// Three consecutive failures open the primary circuit. The cache must
	// not short-circuit the scenario, so clear it between calls.
	for i := 0; i < 3; i++ {
		_, err := engine.Resolve(context.Background(), validCNPJ)
		require.NoError(t, err)
		engine.ClearCache()
	}
	require.Equal(t, 3, primary.calls)
	require.True(t, engine.ProviderHealth()["BrasilAPI"].CircuitOpen)

	// Fourth call inside the window goes straight to the secondary.
	now = now.Add(time.Minute)
	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, 3, primary.calls, "open circuit must not be attempted")
	require.Equal(t, core.SourceCNPJWS, record.Source)

	// After the cooldown the circuit reads closed and the primary is tried again.
	engine.ClearCache()
	now = now.Add(5*time.Minute + time.Second)
	_, err = engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, 4, primary.calls)
}

func TestResolveExhaustionYieldsSyntheticRecord(t *testing.T) {
	var gotTrace []string
	primary := &stubProvider{name: "BrasilAPI", fetch: alwaysFail("BrasilAPI")}
	engine := NewEngine(EngineConfig{}, []Provider{primary},
		WithExhaustedHook(func(cnpj14 string, trace []string) { gotTrace = trace }))

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err, "exhaustion never surfaces as an error")
	require.Equal(t, core.SourceFallback, record.Source)
	require.True(t, record.IsSynthetic())
	require.Equal(t, "11.222.333/0001-81", record.CNPJFormatted)
	require.Len(t, gotTrace, 1)

	snap := engine.Metrics()
	require.EqualValues(t, 1, snap.FallbackUsed)
	require.EqualValues(t, 1, snap.SuccessfulRequests, "a fallback record still counts as success")
}

func TestResolveNoProvidersConfigured(t *testing.T) {
	engine := NewEngine(EngineConfig{}, nil)

	record, err := engine.Resolve(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Equal(t, core.SourceFallback, record.Source)
}

func TestMetricsInvariantOverManyCalls(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: okRecord("EMPRESA", core.SourceBrasilAPI)}
	engine := NewEngine(EngineConfig{}, []Provider{primary})

	const n = 10
	for i := 0; i < n; i++ {
		_, err := engine.Resolve(context.Background(), validCNPJ)
		require.NoError(t, err)
	}

	snap := engine.Metrics()
	require.EqualValues(t, n, snap.TotalRequests)
	// First call hits the provider, the other nine the cache.
	require.EqualValues(t, n-1, snap.CacheHits)
	require.InDelta(t, float64(n-1)/float64(n)*100, snap.CacheHitRate, 1e-9)
}

func TestDownloadCertificateWithoutCredentialReturnsPlaceholder(t *testing.T) {
	engine := NewEngine(EngineConfig{}, nil)

	pdf, err := engine.DownloadCertificate(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.True(t, len(pdf) > 0)
	require.Equal(t, "%PDF-", string(pdf[:5]))
}

func TestDownloadCertificateInvalidCNPJ(t *testing.T) {
	engine := NewEngine(EngineConfig{}, nil)

	_, err := engine.DownloadCertificate(context.Background(), "1234")
	require.True(t, errors.Is(err, ErrInvalidCNPJ))
}

func TestDownloadCertificateSurfacesAuthAndNotFound(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
	} {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			engine := NewEngine(EngineConfig{}, nil, WithCertificateClient(&CertificateClient{
				Client:  server.Client(),
				BaseURL: server.URL,
				APIKey:  "key",
			}))

			_, err := engine.DownloadCertificate(context.Background(), validCNPJ)
			require.True(t, errors.Is(err, tc.want))
		})
	}
}

func TestDownloadCertificateUnavailableProviderYieldsPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := NewEngine(EngineConfig{}, nil, WithCertificateClient(&CertificateClient{
		Client:  server.Client(),
		BaseURL: server.URL,
		APIKey:  "key",
	}))

	pdf, err := engine.DownloadCertificate(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.Contains(t, string(pdf), "11.222.333/0001-81")
}

func TestAdminOperationsAreIdempotent(t *testing.T) {
	primary := &stubProvider{name: "BrasilAPI", fetch: alwaysFail("BrasilAPI")}
	engine := NewEngine(EngineConfig{}, []Provider{primary})

	for i := 0; i < 3; i++ {
		_, _ = engine.Resolve(context.Background(), validCNPJ)
		engine.ClearCache()
	}
	require.True(t, engine.ProviderHealth()["BrasilAPI"].CircuitOpen)

	engine.ResetCircuitBreakers()
	engine.ResetCircuitBreakers()
	require.False(t, engine.ProviderHealth()["BrasilAPI"].CircuitOpen)

	engine.ClearMetrics()
	engine.ClearMetrics()
	require.Zero(t, engine.Metrics().TotalRequests)

	require.Zero(t, engine.ClearCache())
}
