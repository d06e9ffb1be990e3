// Package config provides centralized configuration management for triagemd.
// It layers built-in defaults, an optional YAML config file, and TRIAGEMD_*
// environment variables (optionally seeded from a .env file).
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. TRIAGEMD_SERVER_PORT maps to server.port.
const EnvPrefix = "TRIAGEMD"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load reads configuration from defaults, an optional config file, and
// environment variables. configFile may be empty; when set it must exist.
//
// This function is safe to call multiple times (e.g., for config reload).
func Load(configFile string) (*Config, error) {
	// .env is a convenience for local development. Missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/triagemd")
		v.AddConfigPath("/etc/triagemd")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is not an error; defaults plus env suffice.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.webhook_secret", "")

	// Store
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "./triagemd.db")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// CNPJ resolution
	v.SetDefault("cnpj.cache_ttl", "24h")
	v.SetDefault("cnpj.request_timeout", "30s")
	v.SetDefault("cnpj.brasilapi_base_url", "https://brasilapi.com.br/api/cnpj/v1")
	v.SetDefault("cnpj.cnpjws_base_url", "https://comercial.cnpj.ws/cnpj")
	v.SetDefault("cnpj.cnpjws_api_key", "")
	v.SetDefault("cnpj.cnpja_base_url", "https://api.cnpja.com/rfb/certificate")
	v.SetDefault("cnpj.cnpja_api_key", "")

	// Pipefy
	v.SetDefault("pipefy.enabled", false)
	v.SetDefault("pipefy.endpoint", "https://api.pipefy.com/graphql")
	v.SetDefault("pipefy.token", "")
	v.SetDefault("pipefy.timeout", "30s")
	v.SetDefault("pipefy.phase_aprovado", "")
	v.SetDefault("pipefy.phase_pendencia", "")
	v.SetDefault("pipefy.phase_bloqueante", "")
	v.SetDefault("pipefy.field_report", "informe_triagem")

	// WhatsApp
	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.account_sid", "")
	v.SetDefault("whatsapp.auth_token", "")
	v.SetDefault("whatsapp.from_number", "")
	v.SetDefault("whatsapp.timeout", "15s")

	// Document parsing
	v.SetDefault("docparse.enabled", false)
	v.SetDefault("docparse.base_url", "https://api.cloud.llamaindex.ai/api/parsing")
	v.SetDefault("docparse.api_key", "")
	v.SetDefault("docparse.language", "pt")
	v.SetDefault("docparse.timeout", "60s")

	// Storage
	v.SetDefault("storage.dir", "./data/documents")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health
	v.SetDefault("health.enabled", true)

	// Debug
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}
	if cfg.Pipefy.Enabled && strings.TrimSpace(cfg.Pipefy.Token) == "" {
		return fmt.Errorf("pipefy.enabled requires pipefy.token")
	}
	if cfg.WhatsApp.Enabled {
		if strings.TrimSpace(cfg.WhatsApp.AccountSID) == "" || strings.TrimSpace(cfg.WhatsApp.AuthToken) == "" {
			return fmt.Errorf("whatsapp.enabled requires whatsapp.account_sid and whatsapp.auth_token")
		}
	}
	if cfg.DocParse.Enabled && strings.TrimSpace(cfg.DocParse.APIKey) == "" {
		return fmt.Errorf("docparse.enabled requires docparse.api_key")
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store requires either store.url or store.path")
	}
	return nil
}
