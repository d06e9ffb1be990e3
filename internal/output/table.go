package output

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/triagemhq/triagemd/internal/core"
)

func renderRecordTable(record *core.CompanyRecord) string {
	if record == nil {
		return ""
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})

	t.AppendRow(table.Row{"CNPJ", record.CNPJFormatted})
	t.AppendRow(table.Row{"Razão Social", record.RazaoSocial})
	if record.NomeFantasia != "" {
		t.AppendRow(table.Row{"Nome Fantasia", record.NomeFantasia})
	}
	if record.SituacaoCadastral != "" {
		t.AppendRow(table.Row{"Situação Cadastral", record.SituacaoCadastral})
	}
	if record.EnderecoCompleto != "" {
		t.AppendRow(table.Row{"Endereço", record.EnderecoCompleto})
	}
	if record.Telefone != "" {
		t.AppendRow(table.Row{"Telefone", record.Telefone})
	}
	if record.Email != "" {
		t.AppendRow(table.Row{"Email", record.Email})
	}
	t.AppendRow(table.Row{"Fonte", string(record.Source)})
	t.AppendRow(table.Row{"Consultado em", record.ConsultedAt.Format(time.RFC3339)})
	if record.CachedAt != nil {
		t.AppendRow(table.Row{"Cache", record.CachedAt.Format(time.RFC3339)})
	}

	rendered := t.Render()
	if record.IsSynthetic() {
		rendered += "\nAviso: nenhum provedor respondeu; dados sintéticos de contingência."
	}
	return rendered
}

func renderProviderTable(health map[string]core.ProviderHealthSnapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Provider", "Available", "Circuit", "Failures", "Last Error"})

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapshot := health[name]
		circuit := "closed"
		if snapshot.CircuitOpen {
			circuit = "open"
		}
		t.AppendRow(table.Row{
			snapshot.Name,
			snapshot.Available,
			circuit,
			snapshot.ConsecutiveFailures,
			snapshot.LastError,
		})
	}

	return t.Render()
}

func renderMetricsTable(snapshot core.UsageMetricsSnapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRow(table.Row{"Total Requests", snapshot.TotalRequests})
	t.AppendRow(table.Row{"Successful", snapshot.SuccessfulRequests})
	t.AppendRow(table.Row{"Failed", snapshot.FailedRequests})
	t.AppendRow(table.Row{"Cache Hits", snapshot.CacheHits})
	t.AppendRow(table.Row{"Fallback Used", snapshot.FallbackUsed})
	t.AppendRow(table.Row{"Success Rate", fmt.Sprintf("%.1f%%", snapshot.SuccessRate)})
	t.AppendRow(table.Row{"Cache Hit Rate", fmt.Sprintf("%.1f%%", snapshot.CacheHitRate)})

	providers := make([]string, 0, len(snapshot.ProviderUsage))
	for name := range snapshot.ProviderUsage {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	for _, name := range providers {
		t.AppendRow(table.Row{"Uso " + name, snapshot.ProviderUsage[name]})
	}

	return t.Render()
}
