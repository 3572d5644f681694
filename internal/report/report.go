package report

import (
	"errors"
	"strings"

	"github.com/spigell/resume-keeper/internal/resume"
)

const topTags = 5

type PositionCoverage struct {
	Company    string     `json:"company"`
	Title      string     `json:"title"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date,omitempty"`
	Legacy     bool       `json:"legacy"`
	Groups     int        `json:"groups"`
	Items      int        `json:"items"`
	UniqueTags int        `json:"unique_tags"`
	TopTags    []TagCount `json:"top_tags"`
}

// Coverage describes every position in document order.
func Coverage(res *resume.Resume) []PositionCoverage {
	refs := res.Positions()
	out := make([]PositionCoverage, 0, len(refs))
	for _, ref := range refs {
		pos := ref.Position
		counts := map[string]int{}
		items := pos.Items()
		for _, it := range items {
			for _, t := range resume.Normalize(it).Tags {
				counts[t]++
			}
		}

		top := sortCounts(counts)
		unique := len(top)
		if len(top) > topTags {
			top = top[:topTags]
		}

		out = append(out, PositionCoverage{
			Company:    company(ref.Employer),
			Title:      pos.Title,
			StartDate:  pos.StartDate,
			EndDate:    pos.EndDate,
			Legacy:     pos.IsLegacy(),
			Groups:     len(pos.Groups),
			Items:      len(items),
			UniqueTags: unique,
			TopTags:    top,
		})
	}
	return out
}

type Summary struct {
	Version      string `json:"version"`
	LastUpdated  string `json:"last_updated"`
	Employers    int    `json:"employers"`
	Positions    int    `json:"positions"`
	Groups       int    `json:"groups"`
	Achievements int    `json:"achievements"`
	// Sourced counts achievements stamped with the document they came from.
	Sourced int `json:"sourced"`
}

func Summarize(res *resume.Resume) Summary {
	s := Summary{
		Version:     res.Version(),
		LastUpdated: res.LastUpdated(),
		Employers:   len(res.Experience),
	}
	for _, ref := range res.Positions() {
		s.Positions++
		s.Groups += len(ref.Position.Groups)
		for _, it := range ref.Position.Items() {
			s.Achievements++
			if a, ok := it.(*resume.Achievement); ok && a.HasProvenance() {
				s.Sourced++
			}
		}
	}
	return s
}

// Hit kinds.
const (
	HitPosition    = "position"
	HitAchievement = "achievement"
)

type Hit struct {
	Kind     string `json:"kind"`
	Company  string `json:"company"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Search finds keyword in position titles and achievement texts, ignoring case.
func Search(res *resume.Resume, keyword string) ([]Hit, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return nil, errors.New("search keyword must not be empty")
	}

	hits := make([]Hit, 0)
	for _, ref := range res.Positions() {
		co := company(ref.Employer)
		title := ref.Position.Title
		if strings.Contains(strings.ToLower(title), needle) {
			hits = append(hits, Hit{Kind: HitPosition, Company: co, Title: title})
		}
		walk(ref.Position, func(category string, it resume.Item) {
			if text := it.ItemText(); strings.Contains(strings.ToLower(text), needle) {
				hits = append(hits, Hit{Kind: HitAchievement, Company: co, Title: title, Category: category, Text: text})
			}
		})
	}
	return hits, nil
}
