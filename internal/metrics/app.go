package metrics

import (
	"time"

	"github.com/triagemhq/triagemd/internal/observability"
)

// Application-level metric names following Prometheus conventions
var (
	ResolutionsTotal   = "cnpj_resolutions_total"
	CertificatesTotal  = "cnpj_certificates_total"
	WebhooksTotal      = "pipefy_webhooks_total"
	TriagemTotal       = "triagem_cases_total"
	NotificationsTotal = "whatsapp_notifications_total"
	TriagemDuration    = "triagem_duration_ms"
	ServerStartTime    = "app_server_start_time_seconds"
)

// RecordResolution records one engine resolution labeled by provenance.
func RecordResolution(source string, fromCache bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	cached := "false"
	if fromCache {
		cached = "true"
	}
	_ = observability.TelemetrySystem.Counter(
		ResolutionsTotal,
		1,
		map[string]string{
			"source": source,
			"cached": cached,
		},
	)
}

// RecordCertificate records a certificate download labeled by outcome.
func RecordCertificate(outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		CertificatesTotal,
		1,
		map[string]string{"outcome": outcome},
	)
}

// RecordWebhook records an inbound Pipefy webhook labeled by acceptance.
func RecordWebhook(accepted bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "accepted"
	if !accepted {
		status = "rejected"
	}
	_ = observability.TelemetrySystem.Counter(
		WebhooksTotal,
		1,
		map[string]string{"status": status},
	)
}

// RecordTriagem records a completed triage, labeled by classification, with
// its duration.
func RecordTriagem(classification string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		TriagemTotal,
		1,
		map[string]string{"classification": classification},
	)
	_ = observability.TelemetrySystem.Histogram(
		TriagemDuration,
		duration,
		map[string]string{"classification": classification},
	)
}

// RecordNotification records a WhatsApp send attempt.
func RecordNotification(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "sent"
	if !success {
		status = "failed"
	}
	_ = observability.TelemetrySystem.Counter(
		NotificationsTotal,
		1,
		map[string]string{"status": status},
	)
}

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(
		ServerStartTime,
		float64(timestamp),
		nil,
	)
}
