// Package report renders triagem outcomes as Markdown: a detailed report
// archived with the case documents and a short summary for the card's
// report field.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
	"github.com/triagemhq/triagemd/internal/core/classify"
)

// Metadata identifies the case a report describes. Empty fields are
// omitted from the rendered output.
type Metadata struct {
	GeneratedAt time.Time
	CaseID      string
	CompanyName string
	CNPJ        string
	Analyst     string
}

// Detailed renders the full Markdown triagem report: header, summary,
// per-document findings table, pendências and automatic actions.
func Detailed(result classify.Result, meta Metadata) string {
	var sb strings.Builder

	sb.WriteString("# Relatório de Triagem Documental\n\n")
	if meta.CompanyName != "" {
		fmt.Fprintf(&sb, "**Empresa:** %s\n", meta.CompanyName)
	}
	if meta.CNPJ != "" {
		fmt.Fprintf(&sb, "**CNPJ:** %s\n", meta.CNPJ)
	}
	if meta.CaseID != "" {
		fmt.Fprintf(&sb, "**Caso:** %s\n", meta.CaseID)
	}
	fmt.Fprintf(&sb, "**Data/Hora:** %s\n", timestamp(meta.GeneratedAt))
	if meta.Analyst != "" {
		fmt.Fprintf(&sb, "**Analista:** %s\n", meta.Analyst)
	}

	sb.WriteString("\n## Resumo\n\n")
	fmt.Fprintf(&sb, "**Classificação:** %s\n", classificationLabel(result.Classification))
	fmt.Fprintf(&sb, "**Confiança:** %.1f%%\n", result.Confidence*100)
	present, valid := documentCounts(result.Findings)
	fmt.Fprintf(&sb, "**Documentos:** %d analisados, %d presentes, %d válidos\n",
		len(result.Findings), present, valid)

	sb.WriteString("\n## Documentos\n\n")
	sb.WriteString("| Documento | Presente | Válido | Observações |\n")
	sb.WriteString("|-----------|----------|--------|-------------|\n")
	for _, f := range result.Findings {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			escapeCell(f.DisplayName),
			simNao(f.Present),
			simNao(f.Valid),
			escapeCell(findingNotes(f)),
		)
	}

	sb.WriteString("\n## Pendências\n\n")
	switch {
	case len(result.BlockingIssues) == 0 && len(result.NonBlockingIssues) == 0:
		sb.WriteString("Nenhuma pendência identificada.\n")
	default:
		if len(result.BlockingIssues) > 0 {
			sb.WriteString("### Bloqueantes\n\n")
			for i, issue := range result.BlockingIssues {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, issue)
			}
			sb.WriteString("\n")
		}
		if len(result.NonBlockingIssues) > 0 {
			sb.WriteString("### Não bloqueantes\n\n")
			for i, issue := range result.NonBlockingIssues {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, issue)
			}
			sb.WriteString("\n")
		}
	}

	if len(result.AutoActions) > 0 {
		sb.WriteString("## Ações automáticas\n\n")
		for i, action := range result.AutoActions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, action)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "Gerado automaticamente pelo triagemd em %s.\n",
		meta.GeneratedAt.UTC().Format(time.RFC3339))

	return sb.String()
}

// Summary renders the short report written to the card's report field.
func Summary(result classify.Result, meta Metadata) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "**Status:** %s\n", classificationLabel(result.Classification))
	fmt.Fprintf(&sb, "**Confiança:** %.1f%%\n", result.Confidence*100)
	_, valid := documentCounts(result.Findings)
	fmt.Fprintf(&sb, "**Documentos:** %d/%d válidos\n", valid, len(result.Findings))

	if n := len(result.BlockingIssues); n > 0 {
		fmt.Fprintf(&sb, "**Pendências bloqueantes:** %d\n", n)
	}
	if n := len(result.NonBlockingIssues); n > 0 {
		fmt.Fprintf(&sb, "**Pendências não bloqueantes:** %d\n", n)
	}
	if n := len(result.AutoActions); n > 0 {
		fmt.Fprintf(&sb, "**Ações automáticas:** %d\n", n)
	}

	fmt.Fprintf(&sb, "**Gerado em:** %s\n", timestamp(meta.GeneratedAt))

	return sb.String()
}

func classificationLabel(c core.Classification) string {
	switch c {
	case core.ClassificationAprovado:
		return "Aprovado"
	case core.ClassificationPendenciaBloqueante:
		return "Pendência Bloqueante"
	case core.ClassificationPendenciaNaoBloqueante:
		return "Pendência Não Bloqueante"
	default:
		return string(c)
	}
}

func documentCounts(findings []classify.Finding) (present, valid int) {
	for _, f := range findings {
		if f.Present {
			present++
		}
		if f.Valid {
			valid++
		}
	}
	return present, valid
}

func findingNotes(f classify.Finding) string {
	var notes []string
	if f.AgeDays > 0 {
		notes = append(notes, fmt.Sprintf("%d dias", f.AgeDays))
	}
	if f.AutoGenerate {
		notes = append(notes, "gerado automaticamente")
	}
	notes = append(notes, f.Issues...)
	return strings.Join(notes, "; ")
}

func simNao(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}

func timestamp(t time.Time) string {
	return t.UTC().Format("02/01/2006 às 15:04")
}

func escapeCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
