package cnpj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

const brasilAPIDefaultURL = "https://brasilapi.com.br/api/cnpj/v1"

// BrasilAPIProvider queries the public BrasilAPI CNPJ endpoint. It needs no
// credential and is the first provider in the engine's priority order.
type BrasilAPIProvider struct {
	Client  *http.Client
	BaseURL string
	Timeout time.Duration
	Clock   func() time.Time
}

type brasilAPIPayload struct {
	RazaoSocial               string `json:"razao_social"`
	NomeFantasia              string `json:"nome_fantasia"`
	DescricaoSituacao         string `json:"descricao_situacao_cadastral"`
	DataSituacaoCadastral     string `json:"data_situacao_cadastral"`
	DescricaoTipoDeLogradouro string `json:"descricao_tipo_de_logradouro"`
	Logradouro                string `json:"logradouro"`
	Numero                    string `json:"numero"`
	Complemento               string `json:"complemento"`
	Bairro                    string `json:"bairro"`
	CEP                       string `json:"cep"`
	UF                        string `json:"uf"`
	Municipio                 string `json:"municipio"`
	DDDTelefone1              string `json:"ddd_telefone_1"`
	Email                     string `json:"email"`
}

func (p *BrasilAPIProvider) Name() string             { return string(core.SourceBrasilAPI) }
func (p *BrasilAPIProvider) RequiresCredential() bool { return false }
func (p *BrasilAPIProvider) HasCredential() bool      { return true }

// Fetch performs the lookup for an already-normalized 14-digit CNPJ.
func (p *BrasilAPIProvider) Fetch(ctx context.Context, cnpj14 string) (*core.CompanyRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = brasilAPIDefaultURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+cnpj14, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

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

	var payload brasilAPIPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	record := &core.CompanyRecord{
		CNPJ:                  cnpj14,
		CNPJFormatted:         Format(cnpj14),
		RazaoSocial:           payload.RazaoSocial,
		NomeFantasia:          payload.NomeFantasia,
		SituacaoCadastral:     payload.DescricaoSituacao,
		DataSituacaoCadastral: payload.DataSituacaoCadastral,
		TipoLogradouro:        payload.DescricaoTipoDeLogradouro,
		Logradouro:            payload.Logradouro,
		Numero:                payload.Numero,
		Complemento:           payload.Complemento,
		Bairro:                payload.Bairro,
		CEP:                   payload.CEP,
		UF:                    payload.UF,
		Municipio:             payload.Municipio,
		Telefone:              payload.DDDTelefone1,
		Email:                 payload.Email,
		Source:                core.SourceBrasilAPI,
		ConsultedAt:           p.now(),
	}
	record.EnderecoCompleto = composeEndereco(record)
	return record, nil
}

func (p *BrasilAPIProvider) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
