package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
	"meta": {"version": "3.1", "last_updated": "2026-02-01"},
	"experience": [
		{"id": "exp_001", "company": "Biolumina", "positions": [
			{"title": "VP, Strategy", "start_date": "2021-03", "achievements": [
				{"category": "Key", "items": [
					{"text": "Built the AI roadmap", "tags": ["ai", "strategy"]},
					{"text": "Launched oncology brand", "tags": ["brand", "launch", "strategy"]},
					{"text": "Ran planning offsites", "tags": []}
				]},
				{"category": "Extracted from review.pdf", "source": "review.pdf", "items": [
					{"text": "Grew CX team", "tags": ["cx", "strategy"], "source_document": "review.pdf"}
				]}
			]}
		]},
		{"id": "exp_002", "positions": [
			{"title": "Strategy Lead", "start_date": "2018-01", "end_date": "2021-02", "achievements": ["Wrote the AI playbook", "Hosted webinars"]}
		]}
	]
}`

func load(t *testing.T) *resume.Resume {
	t.Helper()
	res, err := resume.Decode([]byte(fixture))
	require.NoError(t, err)
	return res
}

func TestTags(t *testing.T) {
	t.Parallel()

	rep := Tags(load(t), nil)

	assert.Equal(t, 7, rep.Occurrences)
	assert.Equal(t, 5, rep.Unique)
	assert.Equal(t, []TagCount{
		{Tag: "strategy", Count: 3},
		{Tag: "ai", Count: 1},
		{Tag: "brand", Count: 1},
		{Tag: "cx", Count: 1},
		{Tag: "launch", Count: 1},
	}, rep.Tags)
	assert.Equal(t, []string{"ai", "brand", "cx", "launch"}, rep.SingleUse)
	assert.Equal(t, 2, rep.LegacyItems)
	require.Len(t, rep.Untagged, 1)
	assert.Equal(t, Untagged{Company: "Biolumina", Title: "VP, Strategy", Category: "Key", Text: "Ran planning offsites"}, rep.Untagged[0])
	assert.Empty(t, rep.Profiles)
	assert.Empty(t, rep.Orphans)
}

func TestTagsProfileCoverage(t *testing.T) {
	t.Parallel()

	profiles := []Profile{
		{ID: "brand", Label: "Brand Management", PriorityTags: []string{"brand", "launch", "hcp"}},
		{ID: "cx", Label: "CX & Omnichannel", PriorityTags: []string{"cx", "strategy"}},
	}

	rep := Tags(load(t), profiles)
	require.Len(t, rep.Profiles, 2)

	brand := rep.Profiles[0]
	assert.Equal(t, []TagCount{{Tag: "brand", Count: 1}, {Tag: "launch", Count: 1}}, brand.Matched)
	assert.Equal(t, []string{"hcp"}, brand.Missing)
	assert.Equal(t, 1, brand.MatchedItems)
	assert.Equal(t, 3, brand.TaggedItems)

	cx := rep.Profiles[1]
	assert.Equal(t, []TagCount{{Tag: "strategy", Count: 3}, {Tag: "cx", Count: 1}}, cx.Matched)
	assert.Empty(t, cx.Missing)
	assert.Equal(t, 3, cx.MatchedItems)

	assert.Equal(t, []string{"ai"}, rep.Orphans)
}

func TestLoadProfiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "resume_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profiles": [{"id": "strategy", "label": "Strategic Planning", "priority_tags": ["strategy", "ai"]}]}`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, []Profile{{ID: "strategy", Label: "Strategic Planning", PriorityTags: []string{"strategy", "ai"}}}, profiles)

	_, err = LoadProfiles(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	cov := Coverage(load(t))
	require.Len(t, cov, 2)

	vp := cov[0]
	assert.Equal(t, "Biolumina", vp.Company)
	assert.Equal(t, 2, vp.Groups)
	assert.Equal(t, 4, vp.Items)
	assert.Equal(t, 5, vp.UniqueTags)
	assert.Len(t, vp.TopTags, 5)
	assert.Equal(t, TagCount{Tag: "strategy", Count: 3}, vp.TopTags[0])
	assert.False(t, vp.Legacy)

	lead := cov[1]
	assert.Equal(t, "exp_002", lead.Company)
	assert.True(t, lead.Legacy)
	assert.Equal(t, 2, lead.Items)
	assert.Zero(t, lead.UniqueTags)
	assert.Empty(t, lead.TopTags)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{
		Version:      "3.1",
		LastUpdated:  "2026-02-01",
		Employers:    2,
		Positions:    2,
		Groups:       2,
		Achievements: 6,
		Sourced:      1,
	}, Summarize(load(t)))
}

func TestSearch(t *testing.T) {
	t.Parallel()

	hits, err := Search(load(t), "  ai ")
	require.NoError(t, err)
	assert.Equal(t, []Hit{
		{Kind: HitAchievement, Company: "Biolumina", Title: "VP, Strategy", Category: "Key", Text: "Built the AI roadmap"},
		{Kind: HitAchievement, Company: "exp_002", Title: "Strategy Lead", Text: "Wrote the AI playbook"},
	}, hits)

	hits, err = Search(load(t), "STRATEGY")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, HitPosition, hits[0].Kind)
	assert.Equal(t, "Strategy Lead", hits[1].Title)

	none, err := Search(load(t), "quantum")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Search(load(t), " ")
	assert.Error(t, err)
}
