// Package rules applies configured maintenance edits to stored achievements:
// tag corrections and literal text replacements.
package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Match selects achievements. Every configured predicate must hold; list
// predicates hold when any of their entries does.
type Match struct {
	// Company is compared with the employer company name or experience id.
	Company      string   `mapstructure:"company"`
	Equals       string   `mapstructure:"equals"`
	Contains     []string `mapstructure:"contains" validate:"dive,required"`
	ContainsFold []string `mapstructure:"contains-fold" validate:"dive,required"`
	HasTag       string   `mapstructure:"has-tag"`
	// LacksTag holds when none of the tags is present.
	LacksTag []string `mapstructure:"lacks-tag" validate:"dive,required"`
}

type Action struct {
	AddTags     []string `mapstructure:"add-tags" validate:"dive,required"`
	RemoveTags  []string `mapstructure:"remove-tags" validate:"dive,required"`
	ReplaceText string   `mapstructure:"replace-text"`
}

type Rule struct {
	Name   string `mapstructure:"name" validate:"required"`
	Match  Match  `mapstructure:"match"`
	Action Action `mapstructure:"action"`
}

// Change records one rule firing on one achievement.
type Change struct {
	Rule        string
	EmployerID  string
	Title       string
	Text        string
	NewText     string
	AddedTags   []string
	RemovedTags []string
	// KeptTags were asked to be removed but are the last tag left.
	KeptTags []string
}

type Result struct {
	Changes []Change
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a rule before it is allowed to touch a document.
func (r Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}

	m, a := r.Match, r.Action
	if m.Equals == "" && len(m.Contains) == 0 && len(m.ContainsFold) == 0 && m.HasTag == "" {
		return fmt.Errorf("rule %q: match needs equals, contains, contains-fold or has-tag", r.Name)
	}
	if len(a.AddTags) == 0 && len(a.RemoveTags) == 0 && a.ReplaceText == "" {
		return fmt.Errorf("rule %q: action is empty", r.Name)
	}
	if a.ReplaceText != "" && m.Equals == "" {
		return fmt.Errorf("rule %q: replace-text requires match.equals", r.Name)
	}
	return nil
}

type Engine struct {
	rules  []Rule
	logger *zap.Logger
}

func New(rules []Rule, log *zap.Logger) (*Engine, error) {
	var errs []error
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Engine{rules: rules, logger: logger.WithFields(log)}, nil
}

// Apply runs every rule against every structured achievement in document
// order. Bare-string achievements carry no tags and are not touched.
func (e *Engine) Apply(res *resume.Resume) Result {
	var result Result

	for _, ref := range res.Positions() {
		for _, g := range ref.Position.Groups {
			for _, it := range g.Items {
				a, ok := it.(*resume.Achievement)
				if !ok {
					continue
				}
				for _, r := range e.rules {
					if !r.Match.matches(ref.Employer, a) {
						continue
					}
					c, changed := r.Action.apply(a)
					if len(c.KeptTags) > 0 {
						e.logger.Warn("tag removal would leave achievement untagged, skipped",
							zap.String("rule", r.Name),
							zap.String(logger.FieldEmployer, ref.Employer.ID),
							logger.Text(c.Text),
							zap.Strings("kept_tags", c.KeptTags),
						)
					}
					if !changed {
						continue
					}
					c.Rule = r.Name
					c.EmployerID = ref.Employer.ID
					c.Title = ref.Position.Title
					result.Changes = append(result.Changes, c)

					e.logger.Info("rule applied",
						zap.String("rule", r.Name),
						zap.String(logger.FieldEmployer, c.EmployerID),
						logger.Text(c.Text),
						zap.Strings("added_tags", c.AddedTags),
						zap.Strings("removed_tags", c.RemovedTags),
					)
				}
			}
		}
	}
	return result
}

func (m Match) matches(emp *resume.Employer, a *resume.Achievement) bool {
	if m.Company != "" && m.Company != emp.Company && m.Company != emp.ID {
		return false
	}
	if m.Equals != "" && a.Text != m.Equals {
		return false
	}
	if len(m.Contains) > 0 && !slices.ContainsFunc(m.Contains, func(s string) bool {
		return strings.Contains(a.Text, s)
	}) {
		return false
	}
	if len(m.ContainsFold) > 0 {
		lower := strings.ToLower(a.Text)
		if !slices.ContainsFunc(m.ContainsFold, func(s string) bool {
			return strings.Contains(lower, strings.ToLower(s))
		}) {
			return false
		}
	}
	if m.HasTag != "" && !a.HasTag(m.HasTag) {
		return false
	}
	if slices.ContainsFunc(m.LacksTag, a.HasTag) {
		return false
	}
	return true
}

func (act Action) apply(a *resume.Achievement) (Change, bool) {
	c := Change{Text: a.Text}

	for _, tag := range act.AddTags {
		if !a.HasTag(tag) {
			a.Tags = append(a.Tags, tag)
			c.AddedTags = append(c.AddedTags, tag)
		}
	}
	for _, tag := range act.RemoveTags {
		if !a.HasTag(tag) {
			continue
		}
		if !slices.ContainsFunc(a.Tags, func(t string) bool { return t != tag }) {
			c.KeptTags = append(c.KeptTags, tag)
			continue
		}
		a.Tags = slices.DeleteFunc(a.Tags, func(t string) bool { return t == tag })
		c.RemovedTags = append(c.RemovedTags, tag)
	}
	if act.ReplaceText != "" && a.Text != act.ReplaceText {
		a.Text = act.ReplaceText
		c.NewText = act.ReplaceText
	}

	changed := len(c.AddedTags) > 0 || len(c.RemovedTags) > 0 || c.NewText != ""
	return c, changed
}
