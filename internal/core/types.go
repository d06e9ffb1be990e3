package core

import "time"

// Source identifies which provider produced a company record.
type Source string

const (
	SourceBrasilAPI Source = "BrasilAPI"
	SourceCNPJWS    Source = "CNPJ.ws"
	SourceCNPJA     Source = "CNPJa"
	SourceFallback  Source = "Fallback-Synthetic"
)

// CompanyRecord is the canonical result of a CNPJ lookup.
type CompanyRecord struct {
	CNPJ          string `json:"cnpj"`
	CNPJFormatted string `json:"cnpj_formatted"`

	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia,omitempty"`

	SituacaoCadastral     string `json:"situacao_cadastral,omitempty"`
	DataSituacaoCadastral string `json:"data_situacao_cadastral,omitempty"`

	TipoLogradouro   string `json:"tipo_logradouro,omitempty"`
	Logradouro       string `json:"logradouro,omitempty"`
	Numero           string `json:"numero,omitempty"`
	Complemento      string `json:"complemento,omitempty"`
	Bairro           string `json:"bairro,omitempty"`
	CEP              string `json:"cep,omitempty"`
	UF               string `json:"uf,omitempty"`
	Municipio        string `json:"municipio,omitempty"`
	EnderecoCompleto string `json:"endereco_completo,omitempty"`

	Telefone string `json:"telefone,omitempty"`
	Email    string `json:"email,omitempty"`

	// Source records which provider resolved the company. Callers that
	// require real registry data must branch on SourceFallback themselves;
	// the resolution engine never refuses to return a record.
	Source Source `json:"source"`

	ConsultedAt time.Time  `json:"consulted_at"`
	CachedAt    *time.Time `json:"cached_at,omitempty"`
}

// IsSynthetic reports whether the record was produced by the last-resort
// fallback rather than a real registry.
func (r *CompanyRecord) IsSynthetic() bool {
	return r != nil && r.Source == SourceFallback
}

// ProviderHealthSnapshot is a point-in-time copy of one provider's health.
type ProviderHealthSnapshot struct {
	Name                string     `json:"name"`
	Available           bool       `json:"available"`
	CircuitOpen         bool       `json:"circuit_open"`
	LastError           string     `json:"last_error,omitempty"`
	ErrorCount          int64      `json:"error_count"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
}

// UsageMetricsSnapshot is a point-in-time copy of engine usage counters.
type UsageMetricsSnapshot struct {
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	CacheHits          int64            `json:"cache_hits"`
	FallbackUsed       int64            `json:"fallback_used"`
	ProviderUsage      map[string]int64 `json:"provider_usage"`
	SuccessRate        float64          `json:"success_rate"`
	CacheHitRate       float64          `json:"cache_hit_rate"`
}

// Classification is the outcome of document triage for a case.
type Classification string

const (
	ClassificationAprovado               Classification = "aprovado"
	ClassificationPendenciaBloqueante    Classification = "pendencia_bloqueante"
	ClassificationPendenciaNaoBloqueante Classification = "pendencia_nao_bloqueante"
)

// Case is a triage case tied to a Pipefy card.
type Case struct {
	ID             string         `json:"id"`
	CardID         string         `json:"card_id"`
	CNPJ           string         `json:"cnpj"`
	RazaoSocial    string         `json:"razao_social,omitempty"`
	Source         Source         `json:"source,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Document is a stored file registered against a case.
type Document struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Name        string    `json:"name"`
	Tag         string    `json:"tag,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recipient is a human operator notified over WhatsApp.
type Recipient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
