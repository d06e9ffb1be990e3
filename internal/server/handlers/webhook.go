package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/triagemhq/triagemd/internal/core/cnpj"
	apperrors "github.com/triagemhq/triagemd/internal/errors"
	"github.com/triagemhq/triagemd/internal/metrics"
	"github.com/triagemhq/triagemd/internal/pipefy"
	"github.com/triagemhq/triagemd/internal/triagem"
)

// SignatureHeader carries the webhook HMAC signature.
const SignatureHeader = "X-Pipefy-Signature"

// maxWebhookBody caps webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// CardProcessor runs the triage flow for one card.
type CardProcessor interface {
	ProcessCard(ctx context.Context, cardID, cnpj string, attachments []pipefy.Attachment) (*triagem.Result, error)
}

// WebhookHandler receives Pipefy card-moved events.
type WebhookHandler struct {
	Processor CardProcessor

	// Secret signs payloads with HMAC-SHA256. Empty disables verification.
	Secret string
}

type webhookCard struct {
	ID          string              `json:"id"`
	CNPJ        string              `json:"cnpj"`
	Attachments []pipefy.Attachment `json:"attachments"`
}

type webhookEvent struct {
	Action string      `json:"action"`
	Card   webhookCard `json:"card"`
}

type webhookPayload struct {
	Data webhookEvent `json:"data"`
}

type webhookResponse struct {
	Status         string `json:"status"`
	CaseID         string `json:"case_id,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// Handle processes POST /webhooks/pipefy.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.RecordWebhook(false)
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "unable to read webhook body"))
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		metrics.RecordWebhook(false)
		respondWithError(w, r, apperrors.NewUnauthorizedError("invalid webhook signature"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordWebhook(false)
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "malformed webhook payload"))
		return
	}

	card := payload.Data.Card
	if strings.TrimSpace(card.ID) == "" {
		metrics.RecordWebhook(false)
		respondWithError(w, r, apperrors.NewInvalidInputError("webhook payload has no card id"))
		return
	}

	metrics.RecordWebhook(true)

	result, err := h.Processor.ProcessCard(r.Context(), card.ID, card.CNPJ, card.Attachments)
	if err != nil {
		if errors.Is(err, cnpj.ErrInvalidCNPJ) {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "card carries an invalid CNPJ"))
			return
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "card processing failed"))
		return
	}

	response := webhookResponse{
		Status:         "processed",
		CaseID:         result.Case.ID,
		Classification: string(result.Classification.Classification),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// verifySignature checks the hex HMAC-SHA256 of the raw body. A missing
// secret disables verification.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.Secret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
