package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/core"
)

func recentDoc(now time.Time, ageDays int) DocumentInfo {
	issued := now.AddDate(0, 0, -ageDays)
	return DocumentInfo{Present: true, IssuedAt: &issued}
}

// completeDocuments returns a document set that satisfies every checklist
// requirement.
func completeDocuments(now time.Time) map[string]DocumentInfo {
	return map[string]DocumentInfo{
		"cartao_cnpj":                       recentDoc(now, 10),
		"contrato_social":                   recentDoc(now, 200),
		"rg_cpf_socios":                     {Present: true},
		"comprovante_residencia":            recentDoc(now, 30),
		"balanco_patrimonial":               {Present: true},
		"declaracao_relacionamento_credito": {Present: true},
		"relatorio_visita":                  {Present: true},
		"ata_comite_credito": {
			Present: true,
			Fields:  []string{"razao_social", "cnpj", "limite_aprovado", "data_aprovacao"},
		},
	}
}

func newTestClassifier(t *testing.T, now time.Time) *Classifier {
	t.Helper()
	c := New()
	c.clock = func() time.Time { return now }
	return c
}

func TestClassifyAprovado(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	result := c.Classify(completeDocuments(now))

	require.Equal(t, core.ClassificationAprovado, result.Classification)
	require.Equal(t, 1.0, result.Confidence)
	require.Empty(t, result.BlockingIssues)
	require.Empty(t, result.NonBlockingIssues)
	require.Empty(t, result.MissingDocuments)
}

func TestClassifyMissingAutoGeneratedDocIsNonBlocking(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	delete(docs, "cartao_cnpj")

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaNaoBloqueante, result.Classification)
	require.Empty(t, result.BlockingIssues)
	require.NotEmpty(t, result.NonBlockingIssues)
	require.Contains(t, result.AutoActions, "gerar Cartão CNPJ automaticamente")
	require.Contains(t, result.MissingDocuments, "Cartão CNPJ")
}

func TestClassifyMissingCharterIsBlocking(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	delete(docs, "contrato_social")

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
	require.NotEmpty(t, result.BlockingIssues)
}

func TestClassifyExpiredDocumentIsBlocking(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	docs["comprovante_residencia"] = recentDoc(now, 120)

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
	require.Contains(t, result.BlockingIssues[0], "documento vencido")
}

func TestClassifyCharterWithoutRegistrationIsBlocking(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	noRegistration := false
	issued := now.AddDate(0, 0, -200)
	docs["contrato_social"] = DocumentInfo{
		Present:         true,
		IssuedAt:        &issued,
		HasRegistration: &noRegistration,
	}

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
}

func TestClassifyCommitteeMinutesMissingFields(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	docs["ata_comite_credito"] = DocumentInfo{
		Present: true,
		Fields:  []string{"razao_social", "cnpj"},
	}

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
	require.Contains(t, result.BlockingIssues[0], "campos obrigatórios ausentes")
}

func TestClassifyUninspectedFieldsAreSkipped(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	docs["ata_comite_credito"] = DocumentInfo{Present: true}

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationAprovado, result.Classification)
}

func TestClassifyNoFinancialDocumentIsBlocking(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	delete(docs, "balanco_patrimonial")

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
	require.Contains(t, result.BlockingIssues, "pelo menos um documento financeiro é obrigatório")
}

func TestClassifyAlternativeFinancialDocumentSuffices(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, now)

	docs := completeDocuments(now)
	delete(docs, "balanco_patrimonial")
	docs["relacao_faturamento"] = DocumentInfo{Present: true}

	result := c.Classify(docs)

	require.Equal(t, core.ClassificationAprovado, result.Classification)
}

func TestNewFromYAML(t *testing.T) {
	t.Run("CustomChecklist", func(t *testing.T) {
		data := []byte(`
requirements:
  - tag: contrato_social
    display_name: Contrato Social
    required: true
    blocking_if_missing: true
`)
		c, err := NewFromYAML(data)
		require.NoError(t, err)
		require.Len(t, c.Requirements(), 1)

		result := c.Classify(nil)
		require.Equal(t, core.ClassificationPendenciaBloqueante, result.Classification)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := NewFromYAML([]byte("requirements: [whoops"))
		require.Error(t, err)
	})

	t.Run("EmptyChecklist", func(t *testing.T) {
		_, err := NewFromYAML([]byte("requirements: []"))
		require.Error(t, err)
	})

	t.Run("MissingTag", func(t *testing.T) {
		_, err := NewFromYAML([]byte("requirements:\n  - display_name: X\n"))
		require.Error(t, err)
	})
}

func TestEmbeddedDefaultsLoad(t *testing.T) {
	c := New()
	require.Len(t, c.Requirements(), 11)
}
