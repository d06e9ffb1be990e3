package docparse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/config"
)

func newTestClient(baseURL string) *Client {
	return New(config.DocParseConfig{
		BaseURL:  baseURL,
		APIKey:   "llx-secret",
		Language: "pt",
		Timeout:  5 * time.Second,
	})
}

func parsedBody(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"success":          true,
		"parsed_content":   content,
		"confidence_score": 0.82,
		"parsing_status":   "completed",
	})
	return string(payload)
}

func TestParseDerivesChecklistHints(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq parseRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(parsedBody(
			"# Ata de Comitê\n\nRazão Social: ACME LTDA\nCNPJ: 11.222.333/0001-81\n" +
				"Limite Aprovado: R$ 500.000,00\nData de Aprovação: 01/08/2026\n" +
				"NIRE 35.300.000.000",
		)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ex, err := client.Parse(context.Background(), "ata_comite_credito.pdf", []byte("%PDF-1.4 ata"))
	require.NoError(t, err)

	require.Equal(t, "/parse", gotPath)
	require.Equal(t, "Bearer llx-secret", gotAuth)
	require.Equal(t, "ata_comite_credito.pdf", gotReq.FileName)
	require.Equal(t, "pt", gotReq.Language)
	require.True(t, gotReq.ResultAsMarkdown)

	require.Equal(t, []string{"razao_social", "cnpj", "limite_aprovado", "data_aprovacao"}, ex.Fields)
	require.NotNil(t, ex.HasRegistration)
	require.True(t, *ex.HasRegistration)
	require.InDelta(t, 0.82, ex.Confidence, 0.001)
}

func TestParseReportsMissingHints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(parsedBody("Contrato social da empresa, cláusulas e assinaturas.")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ex, err := client.Parse(context.Background(), "contrato_social.pdf", []byte("%PDF-1.4 contrato"))
	require.NoError(t, err)

	// Inspected but nothing found: Fields stays non-nil and empty, and the
	// registration flag is an explicit false.
	require.NotNil(t, ex.Fields)
	require.Empty(t, ex.Fields)
	require.NotNil(t, ex.HasRegistration)
	require.False(t, *ex.HasRegistration)
}

func TestParseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Parse(context.Background(), "doc.pdf", []byte("body"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, http.StatusTooManyRequests, parseErr.StatusCode)
}

func TestParseFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "parsing_status": "failed", "error": "conteúdo vazio"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Parse(context.Background(), "doc.pdf", []byte("body"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Message, "conteúdo vazio")
}

func TestParseRejectsEmptyBody(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	_, err := client.Parse(context.Background(), "doc.pdf", nil)
	require.Error(t, err)
}
