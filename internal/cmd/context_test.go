package cmd

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/core"
)

func TestNewEngineRegistersProviders(t *testing.T) {
	cfg := &config.Config{}
	cfg.CNPJ.CacheTTL = 24 * time.Hour
	cfg.CNPJ.RequestTimeout = 5 * time.Second
	cfg.CNPJ.CNPJWSAPIKey = "key"

	engine := newEngine(cfg)

	health := engine.ProviderHealth()
	require.Contains(t, health, string(core.SourceBrasilAPI))
	require.Contains(t, health, string(core.SourceCNPJWS))
	require.True(t, health[string(core.SourceBrasilAPI)].Available)
}

func TestNewEngineSurvivesProviderExhaustion(t *testing.T) {
	// A server that refuses every request forces the synthetic fallback,
	// which runs the exhaustion hook wired by newEngine. No logger is
	// initialized here, so the hook's nil-logger path is covered too.
	srv := httptest.NewServer(nil)
	srv.Close()

	cfg := &config.Config{}
	cfg.CNPJ.CacheTTL = time.Hour
	cfg.CNPJ.RequestTimeout = time.Second
	cfg.CNPJ.BrasilAPIBaseURL = srv.URL
	cfg.CNPJ.CNPJWSBaseURL = srv.URL
	cfg.CNPJ.CNPJWSAPIKey = "key"

	engine := newEngine(cfg)

	record, err := engine.Resolve(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.True(t, record.IsSynthetic())
}

func TestLogProviderExhaustionWithoutLogger(t *testing.T) {
	require.NotPanics(t, func() {
		logProviderExhaustion("11222333000181", []string{"BrasilAPI: connection refused"})
	})
}
