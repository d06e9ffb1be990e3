package cnpj

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

// Provider is a single external CNPJ registry. Fetch performs one bounded
// HTTP lookup of a normalized 14-digit CNPJ and maps the proprietary
// payload into the common record shape, or returns a *ProviderError.
type Provider interface {
	Name() string
	RequiresCredential() bool
	HasCredential() bool
	Fetch(ctx context.Context, cnpj14 string) (*core.CompanyRecord, error)
}

const (
	defaultFetchTimeout = 30 * time.Second
	connectTimeout      = 5 * time.Second
)

// newHTTPClient bounds both the total request time and the dial time, so no
// provider call can block indefinitely.
func newHTTPClient(total time.Duration) *http.Client {
	if total <= 0 {
		total = defaultFetchTimeout
	}
	return &http.Client{
		Timeout: total,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// composeEndereco derives the single-line composite address carried on
// every record that has address data.
func composeEndereco(r *core.CompanyRecord) string {
	var parts []string

	street := strings.TrimSpace(strings.TrimSpace(r.TipoLogradouro) + " " + strings.TrimSpace(r.Logradouro))
	if street != "" {
		parts = append(parts, street)
	}
	if n := strings.TrimSpace(r.Numero); n != "" {
		parts = append(parts, n)
	}
	if c := strings.TrimSpace(r.Complemento); c != "" {
		parts = append(parts, c)
	}
	if b := strings.TrimSpace(r.Bairro); b != "" {
		parts = append(parts, b)
	}

	city := strings.TrimSpace(r.Municipio)
	if uf := strings.TrimSpace(r.UF); uf != "" {
		if city != "" {
			city += " - " + uf
		} else {
			city = uf
		}
	}
	if city != "" {
		parts = append(parts, city)
	}

	return strings.Join(parts, ", ")
}
