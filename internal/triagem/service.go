// Package triagem orchestrates the full card-processing flow: attachments
// come down, the CNPJ is resolved, the case is classified and persisted, the
// card moves phase, and operators are notified.
package triagem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triagemhq/triagemd/internal/core"
	"github.com/triagemhq/triagemd/internal/core/classify"
	"github.com/triagemhq/triagemd/internal/core/cnpj"
	"github.com/triagemhq/triagemd/internal/core/report"
	"github.com/triagemhq/triagemd/internal/core/store"
	"github.com/triagemhq/triagemd/internal/docparse"
	"github.com/triagemhq/triagemd/internal/metrics"
	"github.com/triagemhq/triagemd/internal/observability"
	"github.com/triagemhq/triagemd/internal/pipefy"
	"github.com/triagemhq/triagemd/internal/whatsapp"
)

// CardClient is the slice of the Pipefy client the flow needs.
type CardClient interface {
	GetCardAttachments(ctx context.Context, cardID string) ([]pipefy.Attachment, error)
	DownloadAttachment(ctx context.Context, url string) ([]byte, error)
	MoveCardByClassification(ctx context.Context, cardID string, classification core.Classification) (*pipefy.CardMove, error)
	UpdateCardField(ctx context.Context, cardID, fieldID, value string) error
}

// Notifier delivers operator notifications.
type Notifier interface {
	Send(ctx context.Context, to, body string) (*whatsapp.Message, error)
}

// Parser extracts classification hints from a downloaded document.
type Parser interface {
	Parse(ctx context.Context, name string, body []byte) (*docparse.Extraction, error)
}

// CaseStore is the persistence surface the flow needs.
type CaseStore interface {
	CreateCase(ctx context.Context, c *core.Case) error
	GetCaseByCardID(ctx context.Context, cardID string) (*core.Case, error)
	UpdateCaseOutcome(ctx context.Context, id string, razaoSocial string, source core.Source, classification core.Classification, status string) error
	AddDocument(ctx context.Context, d *core.Document) error
	ListRecipients(ctx context.Context, activeOnly bool) ([]core.Recipient, error)
	SaveCard(ctx context.Context, record *core.CompanyRecord) error
}

// Service wires the triage flow together.
type Service struct {
	engine     *cnpj.Engine
	store      CaseStore
	classifier *classify.Classifier
	cards      CardClient
	notifier   Notifier
	parser     Parser

	storageDir    string
	reportFieldID string
}

// Option customizes a Service.
type Option func(*Service)

// WithParser wires the document parsing client. Parsed extractions feed
// the checklist's field and registration checks.
func WithParser(p Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithReportField sets the card field that receives the summary report
// after classification. Empty skips the field update.
func WithReportField(fieldID string) Option {
	return func(s *Service) { s.reportFieldID = fieldID }
}

// New builds a Service. cards and notifier may be nil when the respective
// integration is disabled; those steps are then skipped.
func New(engine *cnpj.Engine, caseStore CaseStore, classifier *classify.Classifier, cards CardClient, notifier Notifier, storageDir string, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		store:      caseStore,
		classifier: classifier,
		cards:      cards,
		notifier:   notifier,
		storageDir: storageDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is everything that happened while processing one card.
type Result struct {
	Case           *core.Case          `json:"case"`
	Record         *core.CompanyRecord `json:"record"`
	Classification classify.Result     `json:"classification"`
	Documents      []core.Document     `json:"documents"`
	CardMove       *pipefy.CardMove    `json:"card_move,omitempty"`

	// Report is the summary report written to the card's report field.
	Report string `json:"report,omitempty"`

	// MoveError, ReportError and NotifyErrors carry non-fatal integration
	// failures.
	MoveError    string   `json:"move_error,omitempty"`
	ReportError  string   `json:"report_error,omitempty"`
	NotifyErrors []string `json:"notify_errors,omitempty"`
}

// ProcessCard runs the triage flow for one card. Provider failures never
// abort the flow; parsing, Pipefy and WhatsApp errors are logged or
// recorded on the Result. Only invalid CNPJs and storage failures return
// an error.
func (s *Service) ProcessCard(ctx context.Context, cardID, rawCNPJ string, attachments []pipefy.Attachment) (*Result, error) {
	started := time.Now()

	cleaned := cnpj.Clean(rawCNPJ)
	if !cnpj.Valid(cleaned) {
		return nil, cnpj.ErrInvalidCNPJ
	}

	triageCase, err := s.ensureCase(ctx, cardID, cleaned)
	if err != nil {
		return nil, err
	}

	result := &Result{Case: triageCase}

	docs, extractions, err := s.ingestAttachments(ctx, triageCase, attachments)
	if err != nil {
		return nil, err
	}

	record, err := s.engine.Resolve(ctx, cleaned)
	if err != nil {
		// Resolve only fails on invalid input, which was checked above.
		return nil, err
	}
	result.Record = record

	if err := s.store.SaveCard(ctx, record); err != nil {
		logWarn("persist company record failed", zap.String("cnpj", cleaned), zap.Error(err))
	}

	if cardDoc := s.storeCertificate(ctx, triageCase, record); cardDoc != nil {
		docs = append(docs, *cardDoc)
	}

	result.Classification = s.classifier.Classify(documentInfos(docs, extractions))

	status := statusForClassification(result.Classification.Classification)
	if err := s.store.UpdateCaseOutcome(ctx, triageCase.ID, record.RazaoSocial, record.Source, result.Classification.Classification, status); err != nil {
		return nil, fmt.Errorf("update case outcome: %w", err)
	}
	triageCase.RazaoSocial = record.RazaoSocial
	triageCase.Source = record.Source
	triageCase.Classification = result.Classification.Classification
	triageCase.Status = status

	if reportDoc := s.archiveReport(ctx, triageCase, result); reportDoc != nil {
		docs = append(docs, *reportDoc)
	}
	result.Documents = docs

	s.moveCard(ctx, cardID, result)
	s.publishReport(ctx, triageCase, result)
	s.notifyRecipients(ctx, triageCase, result)

	metrics.RecordTriagem(string(result.Classification.Classification), time.Since(started))

	logInfo("card processed",
		zap.String("card_id", cardID),
		zap.String("cnpj", cleaned),
		zap.String("classification", string(result.Classification.Classification)),
		zap.String("source", string(record.Source)),
		zap.Int("documents", len(docs)),
	)

	return result, nil
}

func (s *Service) ensureCase(ctx context.Context, cardID, cleaned string) (*core.Case, error) {
	existing, err := s.store.GetCaseByCardID(ctx, cardID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup case: %w", err)
	}

	c := &core.Case{CardID: cardID, CNPJ: cleaned, Status: "processing"}
	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return c, nil
}

func (s *Service) ingestAttachments(ctx context.Context, triageCase *core.Case, attachments []pipefy.Attachment) ([]core.Document, map[string]*docparse.Extraction, error) {
	if len(attachments) == 0 && s.cards != nil {
		fetched, err := s.cards.GetCardAttachments(ctx, triageCase.CardID)
		if err != nil {
			logWarn("list card attachments failed", zap.String("card_id", triageCase.CardID), zap.Error(err))
		} else {
			attachments = fetched
		}
	}

	var docs []core.Document
	extractions := make(map[string]*docparse.Extraction)
	for _, a := range attachments {
		if s.cards == nil {
			break
		}

		body, err := s.cards.DownloadAttachment(ctx, a.URL)
		if err != nil {
			logWarn("attachment download failed", zap.String("name", a.Name), zap.Error(err))
			continue
		}

		tag := inferTag(a.Name)
		doc, err := s.storeDocument(ctx, triageCase, a.Name, tag, body)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, *doc)

		if ex := s.parseDocument(ctx, a.Name, tag, body); ex != nil {
			extractions[tag] = ex
		}
	}

	return docs, extractions, nil
}

// parseDocument runs the parsing client on one attachment. Parsing is a
// hint source only; failures never abort ingestion.
func (s *Service) parseDocument(ctx context.Context, name, tag string, body []byte) *docparse.Extraction {
	if s.parser == nil || tag == "" {
		return nil
	}

	ex, err := s.parser.Parse(ctx, name, body)
	if err != nil {
		logWarn("document parsing failed", zap.String("name", name), zap.Error(err))
		return nil
	}
	return ex
}

// storeCertificate downloads (or synthesizes) the CNPJ certificate PDF and
// registers it as a cartao_cnpj document. Failures are non-fatal.
func (s *Service) storeCertificate(ctx context.Context, triageCase *core.Case, record *core.CompanyRecord) *core.Document {
	pdf, err := s.engine.DownloadCertificate(ctx, record.CNPJ)
	if err != nil {
		logWarn("certificate download failed", zap.String("cnpj", record.CNPJ), zap.Error(err))
		return nil
	}

	name := fmt.Sprintf("cartao_cnpj_%s.pdf", record.CNPJ)
	doc, err := s.storeDocument(ctx, triageCase, name, "cartao_cnpj", pdf)
	if err != nil {
		logWarn("certificate store failed", zap.String("cnpj", record.CNPJ), zap.Error(err))
		return nil
	}
	return doc
}

func (s *Service) storeDocument(ctx context.Context, triageCase *core.Case, name, tag string, body []byte) (*core.Document, error) {
	dir := filepath.Join(s.storageDir, triageCase.ID)
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	doc := &core.Document{
		CaseID:      triageCase.ID,
		Name:        name,
		Tag:         tag,
		ContentType: contentTypeFor(name),
		SizeBytes:   int64(len(body)),
		StoragePath: path,
	}
	if err := s.store.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	return doc, nil
}

// archiveReport renders the detailed triagem report and registers it as a
// case document. Failures are non-fatal.
func (s *Service) archiveReport(ctx context.Context, triageCase *core.Case, result *Result) *core.Document {
	meta := reportMetadata(triageCase)
	detailed := report.Detailed(result.Classification, meta)
	result.Report = report.Summary(result.Classification, meta)

	doc, err := s.storeDocument(ctx, triageCase, "relatorio_triagem.md", "relatorio_triagem", []byte(detailed))
	if err != nil {
		logWarn("report archive failed", zap.String("case_id", triageCase.ID), zap.Error(err))
		return nil
	}
	return doc
}

// publishReport writes the summary report to the card's report field.
func (s *Service) publishReport(ctx context.Context, triageCase *core.Case, result *Result) {
	if s.cards == nil || s.reportFieldID == "" || result.Report == "" {
		return
	}

	if err := s.cards.UpdateCardField(ctx, triageCase.CardID, s.reportFieldID, result.Report); err != nil {
		result.ReportError = err.Error()
		logWarn("report field update failed", zap.String("card_id", triageCase.CardID), zap.Error(err))
	}
}

func reportMetadata(triageCase *core.Case) report.Metadata {
	return report.Metadata{
		GeneratedAt: time.Now().UTC(),
		CaseID:      triageCase.ID,
		CompanyName: triageCase.RazaoSocial,
		CNPJ:        cnpj.Format(triageCase.CNPJ),
		Analyst:     "Sistema Automático",
	}
}

func (s *Service) moveCard(ctx context.Context, cardID string, result *Result) {
	if s.cards == nil {
		return
	}

	move, err := s.cards.MoveCardByClassification(ctx, cardID, result.Classification.Classification)
	if err != nil {
		result.MoveError = err.Error()
		logWarn("card move failed", zap.String("card_id", cardID), zap.Error(err))
		return
	}
	result.CardMove = move
}

func (s *Service) notifyRecipients(ctx context.Context, triageCase *core.Case, result *Result) {
	if s.notifier == nil {
		return
	}

	recipients, err := s.store.ListRecipients(ctx, true)
	if err != nil {
		result.NotifyErrors = append(result.NotifyErrors, err.Error())
		logWarn("list recipients failed", zap.Error(err))
		return
	}

	body := notificationBody(triageCase, result)
	for _, r := range recipients {
		if _, err := s.notifier.Send(ctx, r.PhoneNumber, body); err != nil {
			result.NotifyErrors = append(result.NotifyErrors, fmt.Sprintf("%s: %v", r.Name, err))
			metrics.RecordNotification(false)
			logWarn("notification failed", zap.String("recipient", r.Name), zap.Error(err))
			continue
		}
		metrics.RecordNotification(true)
	}
}

func notificationBody(triageCase *core.Case, result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triagem do card %s concluída.\n", triageCase.CardID)
	fmt.Fprintf(&b, "Empresa: %s (CNPJ %s)\n", triageCase.RazaoSocial, triageCase.CNPJ)
	fmt.Fprintf(&b, "Classificação: %s\n", triageCase.Classification)
	if len(result.Classification.MissingDocuments) > 0 {
		fmt.Fprintf(&b, "Documentos ausentes: %s\n", strings.Join(result.Classification.MissingDocuments, ", "))
	}
	return b.String()
}

func statusForClassification(c core.Classification) string {
	switch c {
	case core.ClassificationAprovado:
		return "approved"
	case core.ClassificationPendenciaBloqueante:
		return "blocked"
	default:
		return "pending"
	}
}

// documentInfos projects stored documents onto the classifier's input,
// keyed by tag. Parsed extractions contribute the field and registration
// checks; unparsed documents keep those nil (not inspected).
func documentInfos(docs []core.Document, extractions map[string]*docparse.Extraction) map[string]classify.DocumentInfo {
	infos := make(map[string]classify.DocumentInfo, len(docs))
	for _, d := range docs {
		if d.Tag == "" {
			continue
		}
		created := d.CreatedAt
		info := classify.DocumentInfo{Present: true}
		if !created.IsZero() {
			info.IssuedAt = &created
		}
		if ex := extractions[d.Tag]; ex != nil {
			info.Fields = ex.Fields
			info.HasRegistration = ex.HasRegistration
		}
		infos[d.Tag] = info
	}
	return infos
}

// knownTags are the checklist tags attachments are matched against.
var knownTags = []string{
	"cartao_cnpj",
	"contrato_social",
	"procuracao",
	"rg_cpf_socios",
	"comprovante_residencia",
	"balanco_patrimonial",
	"demonstracoes_financeiras",
	"relacao_faturamento",
	"declaracao_relacionamento_credito",
	"relatorio_visita",
	"ata_comite_credito",
}

// inferTag guesses the checklist tag from the attachment filename.
func inferTag(name string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	for _, tag := range knownTags {
		if strings.Contains(base, tag) {
			return tag
		}
	}
	return ""
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func logInfo(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info(msg, fields...)
	}
}

func logWarn(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn(msg, fields...)
	}
}
