// Package classify implements the rule-based document checklist used to
// triage a case. Requirements come from an embedded YAML checklist and can be
// overridden with a custom one.
package classify

import (
	_ "embed"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/triagemhq/triagemd/internal/core"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Requirement describes one checklist entry.
type Requirement struct {
	Tag         string `yaml:"tag"`
	DisplayName string `yaml:"display_name"`

	Required   bool `yaml:"required"`
	MaxAgeDays int  `yaml:"max_age_days"`

	// AutoGenerate marks documents the system can produce itself, so their
	// absence is never blocking.
	AutoGenerate bool `yaml:"auto_generate"`

	BlockingIfMissing bool `yaml:"blocking_if_missing"`
	BlockingIfInvalid bool `yaml:"blocking_if_invalid"`

	// Financial documents form an at-least-one group.
	Financial bool `yaml:"financial"`

	NeedsRegistration bool     `yaml:"needs_registration"`
	RequiredFields    []string `yaml:"required_fields"`
}

type checklist struct {
	Requirements []Requirement `yaml:"requirements"`
}

// DocumentInfo is what the caller knows about one submitted document.
type DocumentInfo struct {
	Present  bool
	IssuedAt *time.Time

	// HasRegistration applies to corporate charters; nil means not inspected
	// and is treated as satisfied.
	HasRegistration *bool

	// Fields lists the field names extracted from the document, matched
	// against a requirement's required_fields. Nil means the document was
	// not inspected and the check is skipped.
	Fields []string
}

// Finding is the per-requirement analysis result.
type Finding struct {
	Tag          string   `json:"tag"`
	DisplayName  string   `json:"display_name"`
	Present      bool     `json:"present"`
	Valid        bool     `json:"valid"`
	Issues       []string `json:"issues,omitempty"`
	AgeDays      int      `json:"age_days,omitempty"`
	AutoGenerate bool     `json:"auto_generate,omitempty"`
}

// Result is the full classification outcome for a case.
type Result struct {
	Classification    core.Classification `json:"classification"`
	Confidence        float64             `json:"confidence"`
	Findings          []Finding           `json:"findings"`
	MissingDocuments  []string            `json:"missing_documents,omitempty"`
	BlockingIssues    []string            `json:"blocking_issues,omitempty"`
	NonBlockingIssues []string            `json:"non_blocking_issues,omitempty"`
	AutoActions       []string            `json:"auto_actions,omitempty"`
}

// Classifier evaluates cases against a document checklist.
type Classifier struct {
	requirements []Requirement

	clock func() time.Time
}

// New returns a Classifier using the embedded default checklist.
func New() *Classifier {
	c, err := NewFromYAML(defaultsYAML)
	if err != nil {
		// The embedded defaults are validated by tests; this cannot happen
		// at runtime.
		panic(fmt.Sprintf("classify: invalid embedded checklist: %v", err))
	}
	return c
}

// NewFromYAML builds a Classifier from a custom YAML checklist.
func NewFromYAML(data []byte) (*Classifier, error) {
	var list checklist
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse checklist: %w", err)
	}
	if len(list.Requirements) == 0 {
		return nil, fmt.Errorf("checklist has no requirements")
	}
	for _, req := range list.Requirements {
		if req.Tag == "" {
			return nil, fmt.Errorf("checklist requirement missing tag")
		}
	}

	return &Classifier{
		requirements: list.Requirements,
		clock:        time.Now,
	}, nil
}

// Requirements returns a copy of the active checklist.
func (c *Classifier) Requirements() []Requirement {
	return slices.Clone(c.requirements)
}

// Classify evaluates the submitted documents against the checklist and
// returns the case classification.
func (c *Classifier) Classify(documents map[string]DocumentInfo) Result {
	now := c.clock().UTC()

	result := Result{}
	hasBlocking := false
	hasNonBlocking := false
	financialPresent := false
	financialSeen := false

	for _, req := range c.requirements {
		doc := documents[req.Tag]
		finding := c.analyze(req, doc, now)

		if req.Financial {
			financialSeen = true
			if doc.Present {
				financialPresent = true
			}
		}

		if !finding.Valid {
			switch {
			case !finding.Present:
				result.MissingDocuments = append(result.MissingDocuments, req.display())
				if req.AutoGenerate {
					hasNonBlocking = true
					result.NonBlockingIssues = append(result.NonBlockingIssues, finding.Issues...)
					result.AutoActions = append(result.AutoActions,
						fmt.Sprintf("gerar %s automaticamente", req.display()))
				} else if req.BlockingIfMissing {
					hasBlocking = true
					result.BlockingIssues = append(result.BlockingIssues, finding.Issues...)
				} else {
					hasNonBlocking = true
					result.NonBlockingIssues = append(result.NonBlockingIssues, finding.Issues...)
				}
			case req.BlockingIfInvalid:
				hasBlocking = true
				result.BlockingIssues = append(result.BlockingIssues, finding.Issues...)
			default:
				hasNonBlocking = true
				result.NonBlockingIssues = append(result.NonBlockingIssues, finding.Issues...)
			}
		}

		result.Findings = append(result.Findings, finding)
	}

	// The financial documents are alternatives; at least one must exist.
	if financialSeen && !financialPresent {
		hasBlocking = true
		result.BlockingIssues = append(result.BlockingIssues,
			"pelo menos um documento financeiro é obrigatório")
	}

	switch {
	case hasBlocking:
		result.Classification = core.ClassificationPendenciaBloqueante
	case hasNonBlocking:
		result.Classification = core.ClassificationPendenciaNaoBloqueante
	default:
		result.Classification = core.ClassificationAprovado
	}

	result.Confidence = confidence(result.Findings, result.Classification)

	return result
}

func (c *Classifier) analyze(req Requirement, doc DocumentInfo, now time.Time) Finding {
	finding := Finding{
		Tag:          req.Tag,
		DisplayName:  req.display(),
		Present:      doc.Present,
		Valid:        true,
		AutoGenerate: req.AutoGenerate && !doc.Present,
	}

	if !doc.Present {
		if req.Required {
			finding.Valid = false
			finding.Issues = append(finding.Issues,
				fmt.Sprintf("documento obrigatório ausente: %s", req.display()))
		}
		return finding
	}

	if req.MaxAgeDays > 0 && doc.IssuedAt != nil {
		age := int(now.Sub(doc.IssuedAt.UTC()).Hours() / 24)
		finding.AgeDays = age
		if age > req.MaxAgeDays {
			finding.Valid = false
			finding.Issues = append(finding.Issues,
				fmt.Sprintf("documento vencido: %d dias (máximo: %d)", age, req.MaxAgeDays))
		}
	}

	if req.NeedsRegistration && doc.HasRegistration != nil && !*doc.HasRegistration {
		finding.Valid = false
		finding.Issues = append(finding.Issues,
			fmt.Sprintf("%s sem número de registro", req.display()))
	}

	if len(req.RequiredFields) > 0 && doc.Fields != nil {
		var missing []string
		for _, field := range req.RequiredFields {
			if !slices.Contains(doc.Fields, field) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			finding.Valid = false
			finding.Issues = append(finding.Issues,
				fmt.Sprintf("campos obrigatórios ausentes em %s: %v", req.display(), missing))
		}
	}

	return finding
}

func (r Requirement) display() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Tag
}

func confidence(findings []Finding, classification core.Classification) float64 {
	if len(findings) == 0 {
		return 0
	}

	valid := 0
	for _, f := range findings {
		if f.Valid {
			valid++
		}
	}
	base := float64(valid) / float64(len(findings))

	switch classification {
	case core.ClassificationAprovado:
		if base == 1.0 {
			return 1.0
		}
		return max(0.9, base)
	case core.ClassificationPendenciaNaoBloqueante:
		return max(0.5, base*0.8)
	default:
		return min(0.5, base*0.6)
	}
}
