// Package similarity finds near-duplicate achievements for human review.
// Nothing here modifies the resume.
package similarity

import (
	"fmt"
	"strings"

	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	DefaultHigh   = 0.75
	DefaultMedium = 0.50
)

// Thresholds split similar items into likely rewrites (High) and pairs that
// need a manual look (Medium).
type Thresholds struct {
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHigh, Medium: DefaultMedium}
}

func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.High > 1 || t.Medium > t.High {
		return fmt.Errorf("similarity thresholds must satisfy 0 < medium <= high <= 1, got medium=%.2f high=%.2f", t.Medium, t.High)
	}
	return nil
}

// Entry is an achievement with its location in the document.
type Entry struct {
	Text       string `json:"text"`
	EmployerID string `json:"employer_id"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	Category   string `json:"category"`
}

type Group struct {
	Entries []Entry `json:"entries"`
}

type Report struct {
	Total  int     `json:"total"`
	High   []Group `json:"high"`
	Medium []Group `json:"medium"`
}

// Ratio returns the SequenceMatcher similarity of a and b, ignoring case.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b)))
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Entries flattens every achievement of the document, across all positions.
func Entries(res *resume.Resume) []Entry {
	entries := make([]Entry, 0)
	for _, ref := range res.Positions() {
		base := Entry{EmployerID: ref.Employer.ID, Company: ref.Employer.Company, Title: ref.Position.Title}
		for _, t := range ref.Position.Legacy {
			e := base
			e.Text = string(t)
			entries = append(entries, e)
		}
		for _, g := range ref.Position.Groups {
			for _, it := range g.Items {
				e := base
				e.Text = it.ItemText()
				e.Category = g.Category
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// Analyze groups similar achievements resume-wide. Medium groups that are
// identical to a high group are left out.
func Analyze(res *resume.Resume, t Thresholds) (*Report, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	entries := Entries(res)
	scores := newScoreCache(entries)

	high := findGroups(entries, scores, t.High)
	highKeys := make(map[string]struct{}, len(high))
	for _, g := range high {
		highKeys[g.key] = struct{}{}
	}

	report := &Report{Total: len(entries), High: make([]Group, 0, len(high)), Medium: make([]Group, 0)}
	for _, g := range high {
		report.High = append(report.High, g.toGroup(entries))
	}
	for _, g := range findGroups(entries, scores, t.Medium) {
		if _, dup := highKeys[g.key]; dup {
			continue
		}
		report.Medium = append(report.Medium, g.toGroup(entries))
	}
	return report, nil
}

type indexGroup struct {
	members []int
	key     string
}

func (g indexGroup) toGroup(entries []Entry) Group {
	out := Group{Entries: make([]Entry, 0, len(g.members))}
	for _, i := range g.members {
		out.Entries = append(out.Entries, entries[i])
	}
	return out
}

// findGroups opens a group for every item not yet grouped and pulls in every
// later ungrouped item at or above threshold.
func findGroups(entries []Entry, scores *scoreCache, threshold float64) []indexGroup {
	seen := make([]bool, len(entries))
	groups := make([]indexGroup, 0)

	for i := range entries {
		if seen[i] {
			continue
		}
		members := []int{i}
		for j := i + 1; j < len(entries); j++ {
			if seen[j] {
				continue
			}
			if scores.get(i, j) >= threshold {
				members = append(members, j)
				seen[j] = true
			}
		}
		if len(members) > 1 {
			seen[i] = true
			groups = append(groups, indexGroup{members: members, key: fmt.Sprint(members)})
		}
	}
	return groups
}

type scoreCache struct {
	entries []Entry
	scores  map[[2]int]float64
}

func newScoreCache(entries []Entry) *scoreCache {
	return &scoreCache{entries: entries, scores: make(map[[2]int]float64)}
}

func (c *scoreCache) get(i, j int) float64 {
	k := [2]int{i, j}
	if s, ok := c.scores[k]; ok {
		return s
	}
	s := Ratio(c.entries[i].Text, c.entries[j].Text)
	c.scores[k] = s
	return s
}
