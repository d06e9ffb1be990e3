// Package docparse extracts classification hints from case documents
// through a hosted parsing API. The parsed Markdown is scanned for the
// checklist's required field labels and for a company registration number.
package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/config"
)

const defaultTimeout = 60 * time.Second

// maxDocumentBytes caps uploads at 20 MiB, the parsing API's limit.
const maxDocumentBytes = 20 << 20

// ParseError reports a failed parsing call.
type ParseError struct {
	StatusCode int
	Message    string
}

func (e *ParseError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("docparse: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("docparse: %s", e.Message)
}

// Client talks to the document parsing endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Language   string
}

// New builds a Client from configuration.
func New(cfg config.DocParseConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	language := cfg.Language
	if language == "" {
		language = "pt"
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		Language:   language,
	}
}

// Extraction is what classification can use from one parsed document.
type Extraction struct {
	Content    string
	Confidence float64

	// Fields holds the checklist field names found in the content,
	// canonical order. Non-nil even when empty: the document was inspected.
	Fields []string

	// HasRegistration reports whether a registration number marker was
	// found. Always set once the document was parsed.
	HasRegistration *bool
}

type parseRequest struct {
	FileName         string `json:"file_name"`
	Content          []byte `json:"content"`
	Language         string `json:"language"`
	ResultAsMarkdown bool   `json:"result_as_markdown"`
}

type parseResponse struct {
	Success       bool    `json:"success"`
	ParsedContent string  `json:"parsed_content"`
	Confidence    float64 `json:"confidence_score"`
	Status        string  `json:"parsing_status"`
	Error         string  `json:"error,omitempty"`
}

// Parse submits one document body for parsing and derives the checklist
// hints from the returned content.
func (c *Client) Parse(ctx context.Context, name string, body []byte) (*Extraction, error) {
	if len(body) == 0 {
		return nil, &ParseError{Message: "document body is empty"}
	}
	if len(body) > maxDocumentBytes {
		return nil, &ParseError{Message: fmt.Sprintf("document %s exceeds the %d byte parsing limit", name, maxDocumentBytes)}
	}

	payload, err := json.Marshal(parseRequest{
		FileName:         name,
		Content:          body,
		Language:         c.Language,
		ResultAsMarkdown: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/parse", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ParseError{StatusCode: resp.StatusCode, Message: string(detail)}
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("parsing %s", parsed.Status)
		}
		return nil, &ParseError{Message: msg}
	}

	hasRegistration := hasRegistrationNumber(parsed.ParsedContent)
	return &Extraction{
		Content:         parsed.ParsedContent,
		Confidence:      parsed.Confidence,
		Fields:          extractFields(parsed.ParsedContent),
		HasRegistration: &hasRegistration,
	}, nil
}

// fieldMarkers map checklist field names to the labels that identify them
// in parsed content. Order matches the checklist's required_fields.
var fieldMarkers = []struct {
	field   string
	markers []string
}{
	{"razao_social", []string{"razão social", "razao social"}},
	{"cnpj", []string{"cnpj"}},
	{"limite_aprovado", []string{"limite aprovado", "limite de crédito", "limite de credito"}},
	{"data_aprovacao", []string{"data de aprovação", "data de aprovacao", "data da aprovação"}},
}

func extractFields(content string) []string {
	lowered := strings.ToLower(content)

	fields := []string{}
	for _, fm := range fieldMarkers {
		for _, marker := range fm.markers {
			if strings.Contains(lowered, marker) {
				fields = append(fields, fm.field)
				break
			}
		}
	}
	return fields
}

var registrationMarkers = []string{
	"nire",
	"junta comercial",
	"nº de registro",
	"número de registro",
	"numero de registro",
}

func hasRegistrationNumber(content string) bool {
	lowered := strings.ToLower(content)
	for _, marker := range registrationMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
