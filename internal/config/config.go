package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values come from three layers: built-in defaults, an optional YAML config
// file, and TRIAGEMD_* environment variables (highest precedence).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	CNPJ     CNPJConfig     `mapstructure:"cnpj"`
	Pipefy   PipefyConfig   `mapstructure:"pipefy"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	DocParse DocParseConfig `mapstructure:"docparse"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// WebhookSecret signs inbound webhook payloads (HMAC-SHA256).
	// When empty, signature verification is skipped.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CNPJConfig configures the resolution engine and its providers.
type CNPJConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	BrasilAPIBaseURL string `mapstructure:"brasilapi_base_url"`

	CNPJWSBaseURL string `mapstructure:"cnpjws_base_url"`
	CNPJWSAPIKey  string `mapstructure:"cnpjws_api_key"`

	CNPJABaseURL string `mapstructure:"cnpja_base_url"`
	CNPJAAPIKey  string `mapstructure:"cnpja_api_key"`
}

// PipefyConfig configures the Pipefy GraphQL client.
type PipefyConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// Phase IDs the triagem pipeline moves cards between.
	PhaseAprovado   string `mapstructure:"phase_aprovado"`
	PhasePendencia  string `mapstructure:"phase_pendencia"`
	PhaseBloqueante string `mapstructure:"phase_bloqueante"`

	// FieldReport is the card field that receives the summary report.
	// When empty the field update is skipped.
	FieldReport string `mapstructure:"field_report"`
}

// WhatsAppConfig configures the Twilio WhatsApp notifier.
type WhatsAppConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	FromNumber string        `mapstructure:"from_number"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DocParseConfig configures the hosted document parsing API that extracts
// classification hints (field names, registration number) from attachments.
type DocParseConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig configures local document storage.
type StorageConfig struct {
	// Dir is where downloaded attachments and certificates land.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig contains logging configuration.
// Profiles: SIMPLE (console only, CLI tools), STRUCTURED (structured sinks,
// correlation IDs, API services).
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
