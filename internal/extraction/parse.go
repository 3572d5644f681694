package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// CleanJSON strips markdown code fences the model sometimes wraps JSON in.
func CleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// ParseResult validates an extraction response and decodes it. Any invalid
// field rejects the whole response.
func ParseResult(raw string) (*Result, error) {
	return parseResult(raw, schemaResult)
}

// ParseStandalone reads an extraction file prepared for manual loading. It
// must name the position it belongs to.
func ParseStandalone(raw string) (*Result, error) {
	res, err := parseResult(raw, schemaResult, schemaStandalone)
	if err != nil {
		return nil, err
	}

	if err := res.PositionMetadata.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for i, fe := range verr.Errors {
				field := "position_metadata." + fe.Field
				verr.Errors[i] = FieldError{Field: field, Message: "Missing " + field}
			}
		}
		return nil, err
	}
	return res, nil
}

func parseResult(raw string, schemas ...string) (*Result, error) {
	cleaned, err := validDocument(raw, schemas...)
	if err != nil {
		return nil, err
	}

	doc := gjson.Parse(cleaned)
	res := &Result{Raw: raw}

	if meta := doc.Get("position_metadata"); meta.IsObject() {
		var d Descriptor
		if err := decodeWeak(meta.Value(), &d); err != nil {
			return nil, &ServiceError{Message: "decode position_metadata", Raw: raw, Cause: err}
		}
		res.PositionMetadata = &d
	}

	doc.Get("achievements").ForEach(func(_, item gjson.Result) bool {
		res.Candidates = append(res.Candidates, decodeCandidate(item))
		return true
	})
	return res, nil
}

var candidateKeys = map[string]struct{}{
	"text":              {},
	"tags":              {},
	"metric_type":       {},
	"source_confidence": {},
}

func decodeCandidate(item gjson.Result) Candidate {
	c := Candidate{
		Text:             strings.TrimSpace(item.Get("text").String()),
		MetricType:       item.Get("metric_type").String(),
		SourceConfidence: strings.ToLower(strings.TrimSpace(item.Get("source_confidence").String())),
	}
	for _, tag := range item.Get("tags").Array() {
		c.Tags = append(c.Tags, tag.String())
	}
	item.ForEach(func(key, value gjson.Result) bool {
		if _, known := candidateKeys[key.String()]; !known {
			c.Extra = append(c.Extra, Member{Key: key.String(), Value: json.RawMessage(value.Raw)})
		}
		return true
	})
	return c
}

type rawPosition struct {
	ExperienceID          string `mapstructure:"experience_id"`
	Company               string `mapstructure:"company"`
	Title                 string `mapstructure:"title"`
	StartDate             string `mapstructure:"start_date"`
	EndDate               string `mapstructure:"end_date"`
	Confidence            string `mapstructure:"confidence"`
	HasExtractableContent *bool  `mapstructure:"has_extractable_content"`
	BriefSummary          string `mapstructure:"brief_summary"`
}

type rawAnalysis struct {
	Positions      []rawPosition `mapstructure:"positions_found"`
	DocumentType   string        `mapstructure:"document_type"`
	OverallQuality string        `mapstructure:"overall_quality"`
}

// ParseAnalysis validates and decodes a position identification response.
// Positions without has_extractable_content are assumed to have content.
func ParseAnalysis(raw string) (*Analysis, error) {
	cleaned, err := validDocument(raw, schemaAnalysis)
	if err != nil {
		return nil, err
	}

	var ra rawAnalysis
	if err := decodeWeak(gjson.Parse(cleaned).Value(), &ra); err != nil {
		return nil, &ServiceError{Message: "decode position analysis", Raw: raw, Cause: err}
	}

	a := &Analysis{
		Positions:      make([]PositionCandidate, 0, len(ra.Positions)),
		DocumentType:   ra.DocumentType,
		OverallQuality: ra.OverallQuality,
	}
	for _, p := range ra.Positions {
		content := true
		if p.HasExtractableContent != nil {
			content = *p.HasExtractableContent
		}
		a.Positions = append(a.Positions, PositionCandidate{
			ExperienceID:          p.ExperienceID,
			Company:               p.Company,
			Title:                 p.Title,
			StartDate:             p.StartDate,
			EndDate:               p.EndDate,
			Confidence:            strings.ToLower(strings.TrimSpace(p.Confidence)),
			HasExtractableContent: content,
			BriefSummary:          p.BriefSummary,
		})
	}
	return a, nil
}

func validDocument(raw string, schemas ...string) (string, error) {
	cleaned := CleanJSON(raw)
	if cleaned == "" || !gjson.Valid(cleaned) {
		return "", &ServiceError{Message: "response is not valid JSON", Raw: raw}
	}

	var problems []FieldError
	for _, name := range schemas {
		found, err := check(name, []byte(cleaned))
		if err != nil {
			return "", &ServiceError{Message: "validate response", Raw: raw, Cause: err}
		}
		problems = append(problems, found...)
	}
	if len(problems) > 0 {
		return "", &ValidationError{Errors: normalize(problems)}
	}
	return cleaned, nil
}

func decodeWeak(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	return dec.Decode(input)
}
