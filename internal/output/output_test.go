package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/core"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatRecordTable(t *testing.T) {
	record := &core.CompanyRecord{
		CNPJ:              "11222333000181",
		CNPJFormatted:     "11.222.333/0001-81",
		RazaoSocial:       "ACME COMERCIO LTDA",
		SituacaoCadastral: "ATIVA",
		Source:            core.SourceBrasilAPI,
		ConsultedAt:       time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}

	rendered, err := FormatRecord(FormatTable, record)
	require.NoError(t, err)
	require.Contains(t, rendered, "11.222.333/0001-81")
	require.Contains(t, rendered, "ACME COMERCIO LTDA")
	require.Contains(t, rendered, "BrasilAPI")
	require.NotContains(t, rendered, "contingência")
}

func TestFormatRecordTableWarnsOnSynthetic(t *testing.T) {
	record := &core.CompanyRecord{
		CNPJ:          "11222333000181",
		CNPJFormatted: "11.222.333/0001-81",
		RazaoSocial:   "EMPRESA NAO IDENTIFICADA LTDA",
		Source:        core.SourceFallback,
		ConsultedAt:   time.Now().UTC(),
	}

	rendered, err := FormatRecord(FormatTable, record)
	require.NoError(t, err)
	require.Contains(t, rendered, "contingência")
}

func TestFormatRecordJSON(t *testing.T) {
	record := &core.CompanyRecord{
		CNPJ:        "11222333000181",
		RazaoSocial: "ACME COMERCIO LTDA",
		Source:      core.SourceBrasilAPI,
	}

	rendered, err := FormatRecord(FormatJSON, record)
	require.NoError(t, err)
	require.Contains(t, rendered, "\"razao_social\": \"ACME COMERCIO LTDA\"")
	require.Contains(t, rendered, "\"source\": \"BrasilAPI\"")
}

func TestFormatProviderHealth(t *testing.T) {
	health := map[string]core.ProviderHealthSnapshot{
		"CNPJ.ws": {
			Name:                "CNPJ.ws",
			Available:           false,
			CircuitOpen:         true,
			ConsecutiveFailures: 3,
			LastError:           "timeout",
		},
		"BrasilAPI": {
			Name:      "BrasilAPI",
			Available: true,
		},
	}

	rendered, err := FormatProviderHealth(FormatTable, health)
	require.NoError(t, err)
	require.Contains(t, rendered, "BrasilAPI")
	require.Contains(t, rendered, "open")
	require.Contains(t, rendered, "timeout")
}

func TestFormatUsageMetrics(t *testing.T) {
	snapshot := core.UsageMetricsSnapshot{
		TotalRequests:      10,
		SuccessfulRequests: 8,
		FailedRequests:     2,
		CacheHits:          4,
		FallbackUsed:       1,
		SuccessRate:        80,
		CacheHitRate:       40,
		ProviderUsage:      map[string]int64{"BrasilAPI": 6},
	}

	rendered, err := FormatUsageMetrics(FormatTable, snapshot)
	require.NoError(t, err)
	require.Contains(t, rendered, "80.0%")
	require.Contains(t, rendered, "Uso BrasilAPI")

	jsonRendered, err := FormatUsageMetrics(FormatJSON, snapshot)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"total_requests\": 10")
}
