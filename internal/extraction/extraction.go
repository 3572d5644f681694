// Package extraction describes the extraction service contract: what is sent
// to it, what comes back and how responses are validated before anything
// reaches the resume.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/spigell/resume-keeper/internal/document"
	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/go-playground/validator/v10"
)

// Service turns document text into candidate achievements.
type Service interface {
	// Identify lists the positions a document talks about, matched against
	// the positions already in the resume.
	Identify(ctx context.Context, doc *document.Document, known []Descriptor) (*Analysis, error)
	// Extract pulls achievements for one position out of a document.
	Extract(ctx context.Context, doc *document.Document, position Descriptor) (*Result, error)
}

// Descriptor identifies a position for extraction and for matching back
// into the resume.
type Descriptor struct {
	ExperienceID  string `json:"experience_id" mapstructure:"experience_id" validate:"required"`
	Company       string `json:"company" mapstructure:"company" validate:"required"`
	CompanyParent string `json:"company_parent,omitempty" mapstructure:"company_parent"`
	Title         string `json:"title" mapstructure:"title" validate:"required"`
	StartDate     string `json:"start_date" mapstructure:"start_date" validate:"required"`
	EndDate       string `json:"end_date,omitempty" mapstructure:"end_date"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every missing required field.
func (d Descriptor) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Message: "Missing " + fe.Field()})
	}
	return out
}

// Target is the lookup key for resume.FindPosition.
func (d Descriptor) Target() resume.Target {
	return resume.Target{EmployerID: d.ExperienceID, Title: d.Title, StartDate: d.StartDate}
}

// Period renders the position dates for prompts and logs.
func (d Descriptor) Period() string {
	end := d.EndDate
	if end == "" {
		end = "Present"
	}
	return d.StartDate + " to " + end
}

// Known lists every resume position as a descriptor.
func Known(res *resume.Resume) []Descriptor {
	refs := res.Positions()
	out := make([]Descriptor, 0, len(refs))
	for _, ref := range refs {
		out = append(out, Descriptor{
			ExperienceID:  ref.Employer.ID,
			Company:       ref.Employer.Company,
			CompanyParent: ref.Employer.CompanyParent,
			Title:         ref.Position.Title,
			StartDate:     ref.Position.StartDate,
			EndDate:       ref.Position.EndDate,
		})
	}
	return out
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// PositionCandidate is a position the service believes a document covers.
type PositionCandidate struct {
	ExperienceID          string `json:"experience_id"`
	Company               string `json:"company"`
	Title                 string `json:"title"`
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date,omitempty"`
	Confidence            string `json:"confidence"`
	HasExtractableContent bool   `json:"has_extractable_content"`
	BriefSummary          string `json:"brief_summary,omitempty"`
}

func (p PositionCandidate) Descriptor() Descriptor {
	return Descriptor{
		ExperienceID: p.ExperienceID,
		Company:      p.Company,
		Title:        p.Title,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
	}
}

// Analysis is the answer to Identify.
type Analysis struct {
	Positions      []PositionCandidate `json:"positions_found"`
	DocumentType   string              `json:"document_type"`
	OverallQuality string              `json:"overall_quality"`
}

// Member is a JSON object member kept in its original order.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Candidate is one achievement proposed by the service.
type Candidate struct {
	Text             string
	Tags             []string
	MetricType       string
	SourceConfidence string
	// Extra holds members the model does not map, such as context.
	Extra []Member
}

// Achievement converts the candidate into a resume record carrying every
// extra member.
func (c Candidate) Achievement() *resume.Achievement {
	a := &resume.Achievement{
		Text:             c.Text,
		Tags:             append([]string(nil), c.Tags...),
		MetricType:       c.MetricType,
		SourceConfidence: c.SourceConfidence,
	}
	for _, m := range c.Extra {
		a.SetExtra(m.Key, m.Value)
	}
	return a
}

// Result is the answer to Extract.
type Result struct {
	// PositionMetadata is the position the service says it extracted for, if it said.
	PositionMetadata *Descriptor
	Candidates       []Candidate
	// Raw is the payload the result was parsed from.
	Raw string
}

func (r *Result) Achievements() []*resume.Achievement {
	out := make([]*resume.Achievement, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		out = append(out, c.Achievement())
	}
	return out
}
