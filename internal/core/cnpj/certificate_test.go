package cnpj

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCertificateDownloadOK(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake certificate %%EOF")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "api-key", r.Header.Get("Authorization"))
		require.Equal(t, "11222333000181", r.URL.Query().Get("taxId"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	}))
	defer server.Close()

	client := &CertificateClient{Client: server.Client(), BaseURL: server.URL, APIKey: "api-key"}

	content, err := client.Download(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.Equal(t, pdf, content)
}

func TestCertificateDownloadUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &CertificateClient{Client: server.Client(), BaseURL: server.URL, APIKey: "bad-key"}

	_, err := client.Download(context.Background(), "11222333000181")
	require.True(t, errors.Is(err, ErrUnauthorized))
}

func TestCertificateDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := &CertificateClient{Client: server.Client(), BaseURL: server.URL, APIKey: "api-key"}

	_, err := client.Download(context.Background(), "11222333000181")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCertificateDownloadServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := &CertificateClient{Client: server.Client(), BaseURL: server.URL, APIKey: "api-key"}

	_, err := client.Download(context.Background(), "11222333000181")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusBadGateway, perr.StatusCode)
}

func TestPlaceholderPDFIsStructurallyValid(t *testing.T) {
	pdf := placeholderPDF("11.222.333/0001-81")

	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	require.True(t, bytes.HasSuffix(pdf, []byte("%%EOF")))
	require.Contains(t, string(pdf), "11.222.333/0001-81")
	require.Contains(t, string(pdf), "xref")
	require.Contains(t, string(pdf), "trailer")
}
