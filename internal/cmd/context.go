package cmd

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/core/cnpj"
	"github.com/triagemhq/triagemd/internal/observability"
)

// newEngine builds the resolution engine from configuration. Providers are
// always registered in priority order; the engine itself skips credentialed
// providers whose key is missing.
func newEngine(cfg *config.Config) *cnpj.Engine {
	timeout := cfg.CNPJ.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	providers := []cnpj.Provider{
		&cnpj.BrasilAPIProvider{
			Client:  client,
			BaseURL: cfg.CNPJ.BrasilAPIBaseURL,
			Timeout: timeout,
		},
		&cnpj.CNPJWSProvider{
			Client:  client,
			BaseURL: cfg.CNPJ.CNPJWSBaseURL,
			APIKey:  cfg.CNPJ.CNPJWSAPIKey,
			Timeout: timeout,
		},
	}

	certificate := &cnpj.CertificateClient{
		Client:  client,
		BaseURL: cfg.CNPJ.CNPJABaseURL,
		APIKey:  cfg.CNPJ.CNPJAAPIKey,
		Timeout: timeout,
	}

	return cnpj.NewEngine(
		cnpj.EngineConfig{CacheTTL: cfg.CNPJ.CacheTTL},
		providers,
		cnpj.WithCertificateClient(certificate),
		cnpj.WithExhaustedHook(logProviderExhaustion),
	)
}

// logProviderExhaustion records the attempt trace of a lookup that fell
// through to the synthetic record. Uses whichever logger is active.
func logProviderExhaustion(cnpj14 string, trace []string) {
	logger := observability.ServerLogger
	if logger == nil {
		logger = observability.CLILogger
	}
	if logger == nil {
		return
	}

	logger.Warn("All providers exhausted; serving synthetic record",
		zap.String("cnpj", cnpj14),
		zap.Strings("attempts", trace))
}
