package cnpj

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/core"
)

func TestBrasilAPIFetchMapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/11222333000181", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"razao_social": "EMPRESA TESTE LTDA",
			"nome_fantasia": "Empresa Teste",
			"descricao_situacao_cadastral": "ATIVA",
			"data_situacao_cadastral": "2020-01-15",
			"descricao_tipo_de_logradouro": "RUA",
			"logradouro": "DAS FLORES",
			"numero": "123",
			"bairro": "CENTRO",
			"cep": "01000000",
			"uf": "SP",
			"municipio": "SAO PAULO",
			"ddd_telefone_1": "1133334444",
			"email": "contato@teste.com.br"
		}`))
	}))
	defer server.Close()

	provider := &BrasilAPIProvider{Client: server.Client(), BaseURL: server.URL}

	record, err := provider.Fetch(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.Equal(t, core.SourceBrasilAPI, record.Source)
	require.Equal(t, "EMPRESA TESTE LTDA", record.RazaoSocial)
	require.Equal(t, "11.222.333/0001-81", record.CNPJFormatted)
	require.Equal(t, "ATIVA", record.SituacaoCadastral)
	require.Equal(t, "RUA DAS FLORES, 123, CENTRO, SAO PAULO - SP", record.EnderecoCompleto)
	require.False(t, record.ConsultedAt.IsZero())
}

func TestBrasilAPIFetchNon200IsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := &BrasilAPIProvider{Client: server.Client(), BaseURL: server.URL}

	_, err := provider.Fetch(context.Background(), "11222333000181")
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "BrasilAPI", perr.Provider)
	require.Equal(t, http.StatusInternalServerError, perr.StatusCode)
}

func TestBrasilAPIFetchTransportFailureIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	provider := &BrasilAPIProvider{BaseURL: server.URL}

	_, err := provider.Fetch(context.Background(), "11222333000181")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Zero(t, perr.StatusCode)
}

func TestBrasilAPINeedsNoCredential(t *testing.T) {
	provider := &BrasilAPIProvider{}
	require.False(t, provider.RequiresCredential())
	require.True(t, provider.HasCredential())
}
