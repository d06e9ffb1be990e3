// Package pipefy is a thin client for the Pipefy GraphQL API covering the
// card operations the triage flow needs.
package pipefy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/core"
)

const defaultTimeout = 30 * time.Second

// maxAttachmentBytes caps attachment downloads at 50 MiB.
const maxAttachmentBytes = 50 << 20

// APIError reports a failed Pipefy call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("pipefy: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("pipefy: %s", e.Message)
}

// Client talks to the Pipefy GraphQL endpoint.
type Client struct {
	HTTPClient *http.Client
	Endpoint   string
	Token      string

	// Phase IDs cards move to per classification.
	PhaseAprovado   string
	PhasePendencia  string
	PhaseBloqueante string
}

// New builds a Client from configuration.
func New(cfg config.PipefyConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		HTTPClient:      &http.Client{Timeout: timeout},
		Endpoint:        cfg.Endpoint,
		Token:           cfg.Token,
		PhaseAprovado:   cfg.PhaseAprovado,
		PhasePendencia:  cfg.PhasePendencia,
		PhaseBloqueante: cfg.PhaseBloqueante,
	}
}

// CardMove is the result of moving a card.
type CardMove struct {
	CardID    string `json:"card_id"`
	PhaseID   string `json:"phase_id"`
	PhaseName string `json:"phase_name"`
	UpdatedAt string `json:"updated_at"`
}

// Attachment is a file attached to a card.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, result any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &APIError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(envelope.Errors) > 0 {
		return &APIError{Message: envelope.Errors[0].Message}
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return &APIError{Message: fmt.Sprintf("decode data: %v", err)}
		}
	}

	return nil
}

const moveCardMutation = `
mutation MoveCardToPhase($cardId: ID!, $phaseId: ID!) {
  moveCardToPhase(input: {card_id: $cardId, destination_phase_id: $phaseId}) {
    card {
      id
      title
      current_phase {
        id
        name
      }
      updated_at
    }
  }
}`

// MoveCardToPhase moves a card to the destination phase.
func (c *Client) MoveCardToPhase(ctx context.Context, cardID, phaseID string) (*CardMove, error) {
	var data struct {
		MoveCardToPhase struct {
			Card struct {
				ID           string `json:"id"`
				CurrentPhase struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"current_phase"`
				UpdatedAt string `json:"updated_at"`
			} `json:"card"`
		} `json:"moveCardToPhase"`
	}

	err := c.do(ctx, moveCardMutation, map[string]any{
		"cardId":  cardID,
		"phaseId": phaseID,
	}, &data)
	if err != nil {
		return nil, err
	}

	card := data.MoveCardToPhase.Card
	if card.ID == "" {
		return nil, &APIError{Message: fmt.Sprintf("move of card %s to phase %s returned no card", cardID, phaseID)}
	}

	return &CardMove{
		CardID:    card.ID,
		PhaseID:   card.CurrentPhase.ID,
		PhaseName: card.CurrentPhase.Name,
		UpdatedAt: card.UpdatedAt,
	}, nil
}

const updateFieldMutation = `
mutation UpdateCardField($cardId: ID!, $fieldId: ID!, $newValue: String!) {
  updateCardField(input: {card_id: $cardId, field_id: $fieldId, new_value: $newValue}) {
    card {
      id
    }
  }
}`

// UpdateCardField sets one field on a card.
func (c *Client) UpdateCardField(ctx context.Context, cardID, fieldID, value string) error {
	return c.do(ctx, updateFieldMutation, map[string]any{
		"cardId":   cardID,
		"fieldId":  fieldID,
		"newValue": value,
	}, nil)
}

const cardAttachmentsQuery = `
query GetCardAttachments($cardId: ID!) {
  card(id: $cardId) {
    id
    attachments {
      filename
      url
    }
  }
}`

// GetCardAttachments lists the files attached to a card.
func (c *Client) GetCardAttachments(ctx context.Context, cardID string) ([]Attachment, error) {
	var data struct {
		Card *struct {
			ID          string `json:"id"`
			Attachments []struct {
				Filename string `json:"filename"`
				URL      string `json:"url"`
			} `json:"attachments"`
		} `json:"card"`
	}

	err := c.do(ctx, cardAttachmentsQuery, map[string]any{"cardId": cardID}, &data)
	if err != nil {
		return nil, err
	}
	if data.Card == nil {
		return nil, &APIError{Message: fmt.Sprintf("card %s not found", cardID)}
	}

	attachments := make([]Attachment, 0, len(data.Card.Attachments))
	for _, a := range data.Card.Attachments {
		attachments = append(attachments, Attachment{Name: a.Filename, URL: a.URL})
	}

	return attachments, nil
}

// DownloadAttachment fetches an attachment from its signed URL.
func (c *Client) DownloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "attachment download failed"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("read attachment: %v", err)}
	}

	return body, nil
}

// PhaseForClassification maps a triage classification to the configured
// destination phase ID.
func (c *Client) PhaseForClassification(classification core.Classification) (string, error) {
	switch classification {
	case core.ClassificationAprovado:
		return c.PhaseAprovado, nil
	case core.ClassificationPendenciaBloqueante:
		return c.PhaseBloqueante, nil
	case core.ClassificationPendenciaNaoBloqueante:
		return c.PhasePendencia, nil
	default:
		return "", fmt.Errorf("pipefy: unknown classification %q", classification)
	}
}

// MoveCardByClassification moves a card to the phase mapped to the triage
// outcome.
func (c *Client) MoveCardByClassification(ctx context.Context, cardID string, classification core.Classification) (*CardMove, error) {
	phaseID, err := c.PhaseForClassification(classification)
	if err != nil {
		return nil, err
	}
	return c.MoveCardToPhase(ctx, cardID, phaseID)
}
