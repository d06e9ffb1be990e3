package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/triagemhq/triagemd/internal/core"
	"github.com/triagemhq/triagemd/internal/core/classify"
	"github.com/triagemhq/triagemd/internal/core/cnpj"
	"github.com/triagemhq/triagemd/internal/pipefy"
	"github.com/triagemhq/triagemd/internal/triagem"
)

type stubProcessor struct {
	result *triagem.Result
	err    error

	gotCardID string
	gotCNPJ   string
}

func (s *stubProcessor) ProcessCard(ctx context.Context, cardID, rawCNPJ string, attachments []pipefy.Attachment) (*triagem.Result, error) {
	s.gotCardID = cardID
	s.gotCNPJ = rawCNPJ
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func processedResult() *triagem.Result {
	return &triagem.Result{
		Case: &core.Case{ID: "case-1", CardID: "card-1"},
		Classification: classify.Result{
			Classification: core.ClassificationAprovado,
		},
	}
}

func webhookBody(cardID, rawCNPJ string) []byte {
	return []byte(fmt.Sprintf(
		`{"data":{"action":"card.move","card":{"id":%q,"cnpj":%q}}}`, cardID, rawCNPJ))
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandlerProcessesCard(t *testing.T) {
	processor := &stubProcessor{result: processedResult()}
	handler := &WebhookHandler{Processor: processor, Secret: "hush"}

	body := webhookBody("card-1", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signBody("hush", body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp webhookResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "processed" {
		t.Fatalf("expected status processed, got %s", resp.Status)
	}
	if resp.CaseID != "case-1" {
		t.Fatalf("expected case-1, got %s", resp.CaseID)
	}
	if resp.Classification != string(core.ClassificationAprovado) {
		t.Fatalf("unexpected classification %s", resp.Classification)
	}
	if processor.gotCardID != "card-1" || processor.gotCNPJ != "11222333000181" {
		t.Fatalf("processor received %s / %s", processor.gotCardID, processor.gotCNPJ)
	}
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	processor := &stubProcessor{result: processedResult()}
	handler := &WebhookHandler{Processor: processor, Secret: "hush"}

	body := webhookBody("card-1", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if processor.gotCardID != "" {
		t.Fatal("processor should not run on bad signature")
	}
}

func TestWebhookHandlerRejectsMissingSignature(t *testing.T) {
	handler := &WebhookHandler{Processor: &stubProcessor{result: processedResult()}, Secret: "hush"}

	body := webhookBody("card-1", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestWebhookHandlerSkipsVerificationWithoutSecret(t *testing.T) {
	handler := &WebhookHandler{Processor: &stubProcessor{result: processedResult()}}

	body := webhookBody("card-1", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestWebhookHandlerRejectsMalformedPayload(t *testing.T) {
	handler := &WebhookHandler{Processor: &stubProcessor{result: processedResult()}}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestWebhookHandlerRequiresCardID(t *testing.T) {
	handler := &WebhookHandler{Processor: &stubProcessor{result: processedResult()}}

	body := webhookBody("", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestWebhookHandlerMapsInvalidCNPJ(t *testing.T) {
	processor := &stubProcessor{err: fmt.Errorf("resolve: %w", cnpj.ErrInvalidCNPJ)}
	handler := &WebhookHandler{Processor: processor}

	body := webhookBody("card-1", "123")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestWebhookHandlerMapsProcessingFailure(t *testing.T) {
	processor := &stubProcessor{err: fmt.Errorf("store unavailable")}
	handler := &WebhookHandler{Processor: processor}

	body := webhookBody("card-1", "11222333000181")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pipefy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}
