package output

import (
	"fmt"
	"strings"

	"github.com/triagemhq/triagemd/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// FormatRecord renders a resolved company record.
func FormatRecord(format Format, record *core.CompanyRecord) (string, error) {
	if format == FormatJSON {
		return renderJSON(record)
	}
	return renderRecordTable(record), nil
}

// FormatProviderHealth renders provider health snapshots keyed by name.
func FormatProviderHealth(format Format, health map[string]core.ProviderHealthSnapshot) (string, error) {
	if format == FormatJSON {
		return renderJSON(health)
	}
	return renderProviderTable(health), nil
}

// FormatUsageMetrics renders engine usage counters.
func FormatUsageMetrics(format Format, snapshot core.UsageMetricsSnapshot) (string, error) {
	if format == FormatJSON {
		return renderJSON(snapshot)
	}
	return renderMetricsTable(snapshot), nil
}
