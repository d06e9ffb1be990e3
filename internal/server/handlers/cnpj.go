package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/triagemhq/triagemd/internal/core/cnpj"
	apperrors "github.com/triagemhq/triagemd/internal/errors"
	"github.com/triagemhq/triagemd/internal/metrics"
)

// CNPJHandler exposes the resolution engine over HTTP.
type CNPJHandler struct {
	Engine *cnpj.Engine
}

// Resolve handles GET /api/v1/cnpj/{cnpj}.
func (h *CNPJHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cnpj")

	record, err := h.Engine.Resolve(r.Context(), raw)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid CNPJ"))
		return
	}

	metrics.RecordResolution(string(record.Source), record.CachedAt != nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(record)
}

// Card handles GET /api/v1/cnpj/{cnpj}/card and streams the certificate PDF.
func (h *CNPJHandler) Card(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cnpj")

	content, err := h.Engine.DownloadCertificate(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, cnpj.ErrInvalidCNPJ):
			metrics.RecordCertificate("invalid")
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid CNPJ"))
		case errors.Is(err, cnpj.ErrUnauthorized):
			metrics.RecordCertificate("unauthorized")
			respondWithError(w, r, apperrors.WrapUnauthorized(r.Context(), err, "certificate provider rejected the credential"))
		case errors.Is(err, cnpj.ErrNotFound):
			metrics.RecordCertificate("not_found")
			respondWithError(w, r, apperrors.WrapNotFound(r.Context(), err, "certificate not found for CNPJ"))
		default:
			metrics.RecordCertificate("error")
			respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "certificate download failed"))
		}
		return
	}

	metrics.RecordCertificate("ok")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "cartao_cnpj_"+cnpj.Clean(raw)+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// Metrics handles GET /api/v1/cnpj/metrics.
func (h *CNPJHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.Engine.Metrics())
}

// Providers handles GET /api/v1/cnpj/providers.
func (h *CNPJHandler) Providers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.Engine.ProviderHealth())
}

// ClearCache handles POST /api/v1/cnpj/admin/cache/clear.
func (h *CNPJHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	removed := h.Engine.ClearCache()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"removed": removed,
	})
}

// ClearMetrics handles POST /api/v1/cnpj/admin/metrics/clear.
func (h *CNPJHandler) ClearMetrics(w http.ResponseWriter, r *http.Request) {
	h.Engine.ClearMetrics()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ResetBreakers handles POST /api/v1/cnpj/admin/breakers/reset.
func (h *CNPJHandler) ResetBreakers(w http.ResponseWriter, r *http.Request) {
	h.Engine.ResetCircuitBreakers()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
