package cnpj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

const cnpjWSDefaultURL = "https://comercial.cnpj.ws/cnpj"

// CNPJWSProvider queries the commercial CNPJ.ws endpoint. It requires an
// API key; without one the engine skips the adapter entirely instead of
// attempting and failing.
type CNPJWSProvider struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Clock   func() time.Time
}

type cnpjWSPayload struct {
	RazaoSocial     string `json:"razao_social"`
	Estabelecimento struct {
		NomeFantasia          string `json:"nome_fantasia"`
		SituacaoCadastral     string `json:"situacao_cadastral"`
		DataSituacaoCadastral string `json:"data_situacao_cadastral"`
		TipoLogradouro        string `json:"tipo_logradouro"`
		Logradouro            string `json:"logradouro"`
		Numero                string `json:"numero"`
		Complemento           string `json:"complemento"`
		Bairro                string `json:"bairro"`
		CEP                   string `json:"cep"`
		DDD1                  string `json:"ddd1"`
		Telefone1             string `json:"telefone1"`
		Email                 string `json:"email"`
		Estado                struct {
			Sigla string `json:"sigla"`
		} `json:"estado"`
		Cidade struct {
			Nome string `json:"nome"`
		} `json:"cidade"`
	} `json:"estabelecimento"`
}

func (p *CNPJWSProvider) Name() string             { return string(core.SourceCNPJWS) }
func (p *CNPJWSProvider) RequiresCredential() bool { return true }

func (p *CNPJWSProvider) HasCredential() bool {
	return p != nil && strings.TrimSpace(p.APIKey) != ""
}

// Fetch performs the lookup for an already-normalized 14-digit CNPJ.
func (p *CNPJWSProvider) Fetch(ctx context.Context, cnpj14 string) (*core.CompanyRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = cnpjWSDefaultURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+cnpj14, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x_api_token", strings.TrimSpace(p.APIKey))

	client := p.Client
	if client == nil {
		client = newHTTPClient(p.Timeout)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected registry response"),
		}
	}

	var payload cnpjWSPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	est := payload.Estabelecimento
	telefone := strings.TrimSpace(est.DDD1 + est.Telefone1)

	record := &core.CompanyRecord{
		CNPJ:                  cnpj14,
		CNPJFormatted:         Format(cnpj14),
		RazaoSocial:           payload.RazaoSocial,
		NomeFantasia:          est.NomeFantasia,
		SituacaoCadastral:     est.SituacaoCadastral,
		DataSituacaoCadastral: est.DataSituacaoCadastral,
		TipoLogradouro:        est.TipoLogradouro,
		Logradouro:            est.Logradouro,
		Numero:                est.Numero,
		Complemento:           est.Complemento,
		Bairro:                est.Bairro,
		CEP:                   est.CEP,
		UF:                    est.Estado.Sigla,
		Municipio:             est.Cidade.Nome,
		Telefone:              telefone,
		Email:                 est.Email,
		Source:                core.SourceCNPJWS,
		ConsultedAt:           p.now(),
	}
	record.EnderecoCompleto = composeEndereco(record)
	return record, nil
}

func (p *CNPJWSProvider) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
