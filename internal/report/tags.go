// Package report computes read-only views over the resume: tag usage,
// per-position coverage, totals and keyword search.
package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spigell/resume-keeper/internal/resume"
)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Profile is a target resume flavor and the tags it favors.
type Profile struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	PriorityTags []string `json:"priority_tags"`
}

// LoadProfiles reads a profiles file of the form {"profiles": [...]}.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	var doc struct {
		Profiles []Profile `json:"profiles"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding profiles %s: %w", path, err)
	}
	return doc.Profiles, nil
}

// ProfileCoverage tells how well the tagged achievements serve one profile.
type ProfileCoverage struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Matched []TagCount `json:"matched"`
	Missing []string   `json:"missing"`
	// MatchedItems counts tagged achievements sharing at least one priority tag.
	MatchedItems int `json:"matched_items"`
	TaggedItems  int `json:"tagged_items"`
}

type Untagged struct {
	Company  string `json:"company"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

type TagReport struct {
	Occurrences int        `json:"occurrences"`
	Unique      int        `json:"unique"`
	Tags        []TagCount `json:"tags"`
	SingleUse   []string   `json:"single_use"`
	Untagged    []Untagged `json:"untagged"`
	// LegacyItems counts bare-string achievements, which cannot carry tags.
	LegacyItems int `json:"legacy_items"`
	// Orphans are used tags that no profile lists. Empty without profiles.
	Orphans  []string          `json:"orphans,omitempty"`
	Profiles []ProfileCoverage `json:"profiles,omitempty"`
}

// Tags counts tag usage across all structured achievements.
func Tags(res *resume.Resume, profiles []Profile) TagReport {
	counts := map[string]int{}
	var (
		rep    TagReport
		tagged [][]string
	)

	for _, ref := range res.Positions() {
		walk(ref.Position, func(category string, it resume.Item) {
			a, ok := it.(*resume.Achievement)
			if !ok {
				rep.LegacyItems++
				return
			}
			if len(a.Tags) == 0 {
				rep.Untagged = append(rep.Untagged, Untagged{
					Company:  company(ref.Employer),
					Title:    ref.Position.Title,
					Category: category,
					Text:     a.Text,
				})
				return
			}
			tagged = append(tagged, a.Tags)
			for _, t := range a.Tags {
				counts[t]++
				rep.Occurrences++
			}
		})
	}

	rep.Tags = sortCounts(counts)
	rep.Unique = len(rep.Tags)
	for _, tc := range rep.Tags {
		if tc.Count == 1 {
			rep.SingleUse = append(rep.SingleUse, tc.Tag)
		}
	}
	slices.Sort(rep.SingleUse)

	if len(profiles) == 0 {
		return rep
	}

	prioritized := map[string]bool{}
	for _, p := range profiles {
		cov := ProfileCoverage{ID: p.ID, Label: p.Label, TaggedItems: len(tagged)}
		for _, t := range p.PriorityTags {
			prioritized[t] = true
			if n := counts[t]; n > 0 {
				cov.Matched = append(cov.Matched, TagCount{Tag: t, Count: n})
			} else {
				cov.Missing = append(cov.Missing, t)
			}
		}
		sortTagCounts(cov.Matched)
		for _, tags := range tagged {
			if slices.ContainsFunc(tags, func(t string) bool { return slices.Contains(p.PriorityTags, t) }) {
				cov.MatchedItems++
			}
		}
		rep.Profiles = append(rep.Profiles, cov)
	}

	for _, tc := range rep.Tags {
		if !prioritized[tc.Tag] {
			rep.Orphans = append(rep.Orphans, tc.Tag)
		}
	}
	slices.Sort(rep.Orphans)

	return rep
}

// walk visits every achievement of pos with the category it is filed under.
func walk(pos *resume.Position, fn func(category string, it resume.Item)) {
	for _, t := range pos.Legacy {
		fn("", t)
	}
	for _, g := range pos.Groups {
		for _, it := range g.Items {
			fn(g.Category, it)
		}
	}
}

func company(e *resume.Employer) string {
	if e.Company != "" {
		return e.Company
	}
	return e.ID
}

func sortCounts(counts map[string]int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sortTagCounts(out)
	return out
}

// sortTagCounts orders by count, highest first, then by tag.
func sortTagCounts(tc []TagCount) {
	slices.SortFunc(tc, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
}
