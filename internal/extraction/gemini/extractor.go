// Package gemini implements the extraction service on top of Google Gemini.
package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/resume-keeper/internal/document"
	"github.com/spigell/resume-keeper/internal/extraction"
	"github.com/spigell/resume-keeper/internal/logger"

	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

var (
	//go:embed prompts/system.md
	systemPrompt string
	//go:embed prompts/identify.md
	identifyTemplate string
	//go:embed prompts/extract.md
	extractTemplate string
)

const (
	defaultMaxLogLength     = 200
	defaultMaxDocumentChars = 12000
)

// Options tunes the extractor. Zero values select the defaults.
type Options struct {
	// MaxDocumentChars caps the document text sent with an identification request.
	MaxDocumentChars int
	MaxLogLength     int
}

// Extractor is an extraction.Service backed by a text generator.
type Extractor struct {
	generator   contentGenerator
	taxonomy    extraction.Taxonomy
	maxDocChars int
	maxLogLen   int
	logger      *zap.Logger
}

var _ extraction.Service = (*Extractor)(nil)

func NewExtractor(generator contentGenerator, taxonomy extraction.Taxonomy, opts Options, log *zap.Logger) *Extractor {
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if opts.MaxDocumentChars <= 0 {
		opts.MaxDocumentChars = defaultMaxDocumentChars
	}

	return &Extractor{
		generator:   generator,
		taxonomy:    taxonomy,
		maxDocChars: opts.MaxDocumentChars,
		maxLogLen:   opts.MaxLogLength,
		logger:      logger.WithCommonFields(log, "gemini", generator.Model()),
	}
}

func (e *Extractor) Identify(ctx context.Context, doc *document.Document, known []extraction.Descriptor) (*extraction.Analysis, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	knownJSON, err := json.MarshalIndent(known, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal known positions: %w", err)
	}

	prompt := fill(identifyTemplate, map[string]string{
		"{{KNOWN_POSITIONS}}": string(knownJSON),
		"{{DOCUMENT_NAME}}":   doc.Name,
		"{{DOCUMENT}}":        doc.Truncate(e.maxDocChars),
	})

	log := e.logger.With(logger.DocumentFields(doc.Name)...)
	raw, err := e.generate(ctx, log, prompt)
	if err != nil {
		return nil, &extraction.ServiceError{Message: "identify positions", Cause: err}
	}

	analysis, err := extraction.ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}

	log.Debug("identified positions",
		zap.Int("positions", len(analysis.Positions)),
		zap.String("document_type", analysis.DocumentType),
		zap.String("overall_quality", analysis.OverallQuality),
	)
	return analysis, nil
}

func (e *Extractor) Extract(ctx context.Context, doc *document.Document, position extraction.Descriptor) (*extraction.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	metadata, err := json.MarshalIndent(metadataPayload(position), "  ", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal position metadata: %w", err)
	}

	prompt := fill(extractTemplate, map[string]string{
		"{{COMPANY}}":           position.Company,
		"{{TITLE}}":             position.Title,
		"{{PERIOD}}":            position.Period(),
		"{{EXPERIENCE_ID}}":     position.ExperienceID,
		"{{TAXONOMY}}":          e.taxonomy.JSON(),
		"{{POSITION_METADATA}}": string(metadata),
		"{{DOCUMENT_NAME}}":     doc.Name,
		"{{DOCUMENT}}":          doc.Content(),
	})

	log := e.logger.With(logger.DocumentFields(doc.Name)...).
		With(logger.PositionFields(position.ExperienceID, position.Title)...)

	raw, err := e.generate(ctx, log, prompt)
	if err != nil {
		return nil, &extraction.ServiceError{Message: "extract achievements", Cause: err}
	}

	result, err := extraction.ParseResult(raw)
	if err != nil {
		return nil, err
	}

	if len(e.taxonomy) > 0 {
		for _, c := range result.Candidates {
			if unknown := e.taxonomy.Unknown(c.Tags); len(unknown) > 0 {
				log.Debug("achievement uses tags outside the taxonomy",
					logger.Text(c.Text),
					zap.Strings("tags", unknown),
				)
			}
		}
	}

	return result, nil
}

func (e *Extractor) generate(ctx context.Context, log *zap.Logger, prompt string) (string, error) {
	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)
	return raw, nil
}

// metadataPayload is the position_metadata object the model should echo back.
// A missing end date is sent as null.
func metadataPayload(d extraction.Descriptor) map[string]any {
	var end any
	if d.EndDate != "" {
		end = d.EndDate
	}
	return map[string]any{
		"company":        d.Company,
		"company_parent": d.CompanyParent,
		"title":          d.Title,
		"start_date":     d.StartDate,
		"end_date":       end,
		"experience_id":  d.ExperienceID,
	}
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for placeholder, value := range values {
		pairs = append(pairs, placeholder, value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
