package extraction

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"```json\n{\"a\": 1}\n```": `{"a": 1}`,
		"```\n{\"a\": 1}```":        `{"a": 1}`,
		"  {\"a\": 1}  ":            `{"a": 1}`,
		"`{\"a\": 1}`":              `{"a": 1}`,
	} {
		assert.Equal(t, want, CleanJSON(in), in)
	}
}

func TestParseResult(t *testing.T) {
	raw := "```json\n" + `{
		"position_metadata": {"experience_id": "acme", "company": "Acme", "title": "VP", "start_date": "2019-01", "end_date": null},
		"achievements": [
			{"text": " Led team of 5 ", "tags": ["leadership"], "metric_type": "count", "source_confidence": "High", "context": "Q3 review"},
			{"text": "Cut agency spend 12%", "tags": ["budget_management", "roi_modeling"], "metric_type": null}
		]
	}` + "\n```"

	res, err := ParseResult(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, res.Raw)
	require.NotNil(t, res.PositionMetadata)
	assert.Equal(t, Descriptor{ExperienceID: "acme", Company: "Acme", Title: "VP", StartDate: "2019-01"}, *res.PositionMetadata)

	require.Len(t, res.Candidates, 2)
	first := res.Candidates[0]
	assert.Equal(t, "Led team of 5", first.Text)
	assert.Equal(t, "high", first.SourceConfidence)
	assert.Equal(t, []Member{{Key: "context", Value: json.RawMessage(`"Q3 review"`)}}, first.Extra)
	assert.Empty(t, res.Candidates[1].MetricType)

	out, err := json.Marshal(res.Achievements()[0])
	require.NoError(t, err)
	assert.Equal(t, `{"text":"Led team of 5","tags":["leadership"],"metric_type":"count","source_confidence":"high","context":"Q3 review"}`, string(out))
}

func TestParseResultWithoutMetadata(t *testing.T) {
	res, err := ParseResult(`{"achievements": []}`)
	require.NoError(t, err)
	assert.Nil(t, res.PositionMetadata)
	assert.Empty(t, res.Candidates)
}

func TestParseResultNotJSON(t *testing.T) {
	raw := "Sorry, I could not find any achievements."

	_, err := ParseResult(raw)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, raw, svcErr.Raw)
}

func TestParseResultValidation(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "missing achievements",
			raw:  `{"position_metadata": {}}`,
			want: []string{"Missing 'achievements' array"},
		},
		{
			name: "achievements not an array",
			raw:  `{"achievements": {"text": "x"}}`,
			want: []string{"'achievements' must be an array"},
		},
		{
			name: "every bad item is listed",
			raw: `{"achievements": [
				{"text": "", "tags": []},
				{"tags": ["a"]},
				"oops",
				{"text": "fine", "tags": ["x"]}
			]}`,
			want: []string{
				"Achievement 0: Missing or empty 'tags' array",
				"Achievement 0: Missing or empty 'text'",
				"Achievement 1: Missing or empty 'text'",
				"Achievement 2: must be an object",
			},
		},
		{
			name: "blank text",
			raw:  `{"achievements": [{"text": "   ", "tags": ["x"]}]}`,
			want: []string{"Achievement 0: Missing or empty 'text'"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ParseResult(tc.raw)
			assert.Nil(t, res)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.want, verr.Messages())
		})
	}
}

func TestParseStandalone(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res, err := ParseStandalone(`{"position_metadata": {"experience_id": "acme", "company": "Acme", "title": "VP", "start_date": "2019-01"},
			"achievements": [{"text": "Led team of 5", "tags": ["leadership"]}]}`)
		require.NoError(t, err)
		assert.Equal(t, resume.Target{EmployerID: "acme", Title: "VP", StartDate: "2019-01"}, res.PositionMetadata.Target())
	})

	cases := map[string]struct {
		raw  string
		want []string
	}{
		"no metadata": {
			raw:  `{"achievements": []}`,
			want: []string{"Missing 'position_metadata'"},
		},
		"missing fields": {
			raw:  `{"position_metadata": {"company": "Acme", "title": "VP"}, "achievements": []}`,
			want: []string{"Missing position_metadata.experience_id", "Missing position_metadata.start_date"},
		},
		"empty field": {
			raw:  `{"position_metadata": {"experience_id": "acme", "company": "Acme", "title": "", "start_date": "2019-01"}, "achievements": []}`,
			want: []string{"Missing position_metadata.title"},
		},
		"both documents checked": {
			raw:  `{"position_metadata": {"experience_id": "acme", "company": "Acme", "title": "VP"}}`,
			want: []string{"Missing 'achievements' array", "Missing position_metadata.start_date"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStandalone(tc.raw)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.want, verr.Messages())
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	analysis, err := ParseAnalysis(`{
		"positions_found": [
			{"experience_id": "acme", "company": "Acme", "title": "VP", "start_date": "2019-01", "confidence": " HIGH ", "brief_summary": "Q3 review"},
			{"experience_id": "acme", "title": "Director", "confidence": "low", "has_extractable_content": false}
		],
		"document_type": "performance_review",
		"overall_quality": "good"
	}`)
	require.NoError(t, err)

	assert.Equal(t, "performance_review", analysis.DocumentType)
	require.Len(t, analysis.Positions, 2)
	assert.Equal(t, PositionCandidate{
		ExperienceID:          "acme",
		Company:               "Acme",
		Title:                 "VP",
		StartDate:             "2019-01",
		Confidence:            ConfidenceHigh,
		HasExtractableContent: true,
		BriefSummary:          "Q3 review",
	}, analysis.Positions[0])
	assert.False(t, analysis.Positions[1].HasExtractableContent)
	assert.Equal(t, "Director", analysis.Positions[1].Descriptor().Title)
}

func TestParseAnalysisInvalid(t *testing.T) {
	_, err := ParseAnalysis(`{"positions_found": [{"title": "VP"}]}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

func TestDescriptorValidate(t *testing.T) {
	err := Descriptor{Company: "Acme"}.Validate()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Missing experience_id", "Missing title", "Missing start_date"}, verr.Messages())

	assert.NoError(t, Descriptor{ExperienceID: "a", Company: "A", Title: "T", StartDate: "2020"}.Validate())
}

func TestDescriptorPeriod(t *testing.T) {
	assert.Equal(t, "2019-01 to Present", Descriptor{StartDate: "2019-01"}.Period())
	assert.Equal(t, "2019-01 to 2021-06", Descriptor{StartDate: "2019-01", EndDate: "2021-06"}.Period())
}

func TestKnown(t *testing.T) {
	res, err := resume.Decode([]byte(`{"experience": [{"id": "acme", "company": "Acme", "company_parent": "Acme Group", "positions": [
		{"title": "VP", "start_date": "2019-01", "end_date": null}
	]}]}`))
	require.NoError(t, err)

	assert.Equal(t, []Descriptor{{
		ExperienceID:  "acme",
		Company:       "Acme",
		CompanyParent: "Acme Group",
		Title:         "VP",
		StartDate:     "2019-01",
	}}, Known(res))
}

func TestTaxonomy(t *testing.T) {
	tax, err := LoadTaxonomy("")
	require.NoError(t, err)

	tags := tax.Tags()
	assert.Contains(t, tags, "leadership")
	assert.IsNonDecreasing(t, tags)
	assert.Equal(t, []string{"made_up"}, tax.Unknown([]string{"brand", "made_up", "patient"}))
	assert.Contains(t, tax.JSON(), `"leadership"`)

	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"custom": ["x", "y"]}`), 0o600))
	custom, err := LoadTaxonomy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, custom.Tags())

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	_, err = LoadTaxonomy(path)
	assert.Error(t, err)
}
