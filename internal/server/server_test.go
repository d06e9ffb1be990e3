package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
	"github.com/triagemhq/triagemd/internal/core/cnpj"
	apperrors "github.com/triagemhq/triagemd/internal/errors"
)

type staticProvider struct{}

func (staticProvider) Name() string             { return "BrasilAPI" }
func (staticProvider) RequiresCredential() bool { return false }
func (staticProvider) HasCredential() bool      { return true }

func (staticProvider) Fetch(ctx context.Context, cnpj14 string) (*core.CompanyRecord, error) {
	return &core.CompanyRecord{
		CNPJ:        cnpj14,
		RazaoSocial: "ACME COMERCIO LTDA",
		Source:      core.SourceBrasilAPI,
		ConsultedAt: time.Now().UTC(),
	}, nil
}

func newTestServer() *Server {
	engine := cnpj.NewEngine(cnpj.EngineConfig{CacheTTL: time.Hour}, []cnpj.Provider{staticProvider{}})
	return New("127.0.0.1", 0, Deps{Engine: engine})
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestServerRejectsUnknownMethod(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/version", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestServerRoutesCNPJResolution(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cnpj/11222333000181", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var record core.CompanyRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record.RazaoSocial != "ACME COMERCIO LTDA" {
		t.Fatalf("unexpected razao social %q", record.RazaoSocial)
	}
}

func TestServerSkipsRoutesWithoutDeps(t *testing.T) {
	srv := New("127.0.0.1", 0, Deps{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected webhook route to be absent, got %d", rec.Code)
	}
}
