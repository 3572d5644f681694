package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/spigell/resume-keeper/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const acmeDoc = `{"experience": [{"id": "acme", "company": "Acme", "positions": [
	{"title": "VP, Marketing", "start_date": "2019-01", "achievements": [
		{"category": "Key Achievements", "items": [{"text": "Led team of 5", "tags": ["leadership"]}]}
	]},
	{"title": "Director", "start_date": "2015-03", "achievements": ["Built the analytics practice"]}
]}]}`

func newEngine() *Engine {
	e := New(zap.NewNop())
	e.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }
	return e
}

func load(t *testing.T) *resume.Resume {
	t.Helper()
	res, err := resume.Decode([]byte(acmeDoc))
	require.NoError(t, err)
	return res
}

func candidates(texts ...string) []*resume.Achievement {
	out := make([]*resume.Achievement, 0, len(texts))
	for _, text := range texts {
		out = append(out, &resume.Achievement{Text: text, Tags: []string{"brand"}, SourceConfidence: "high"})
	}
	return out
}

var acmeVP = resume.Target{EmployerID: "acme", Title: "VP, Marketing"}

func TestMergeAppendsOnlyNewItems(t *testing.T) {
	res := load(t)
	e := newEngine()

	match, result, err := e.File(res, acmeVP, candidates("Led team of 5", "Launched 3 campaigns"), "review_2020.pdf", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 1, Duplicates: 1}, result)

	groups := match.Position.Groups
	require.Len(t, groups, 2)
	added := groups[1]
	assert.Equal(t, "Extracted from review_2020.pdf", added.Category)
	assert.Equal(t, "review_2020.pdf", added.Source)
	assert.Equal(t, "2024-06-30", added.ExtractionDate)
	require.Len(t, added.Items, 1)

	item := added.Items[0].(*resume.Achievement)
	assert.Equal(t, "Launched 3 campaigns", item.Text)
	assert.Equal(t, "review_2020.pdf", item.SourceDocument)
	assert.Equal(t, "2024-06-30", item.ExtractedDate)
	assert.Equal(t, "high", item.SourceConfidence)

	assert.Len(t, groups[0].Items, 1, "existing group must stay untouched")
}

func TestMergeIsIdempotent(t *testing.T) {
	res := load(t)
	e := newEngine()
	batch := candidates("Launched 3 campaigns", "Grew NPS by 12 points")

	_, first, err := e.File(res, acmeVP, batch, "a.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, 2, first.New)

	match, second, err := e.File(res, acmeVP, batch, "a.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 0, Duplicates: 2}, second)
	assert.Len(t, match.Position.Groups, 2)
	assert.Len(t, match.Position.Items(), 3)
}

func TestMergeCaseAndWhitespaceDuplicates(t *testing.T) {
	res := load(t)

	_, result, err := newEngine().File(res, acmeVP, candidates("  LED TEAM OF 5 ", "Led team of 5!"), "b.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 1, Duplicates: 1}, result)
}

func TestMergeDuplicatesWithinBatch(t *testing.T) {
	res := load(t)

	_, result, err := newEngine().File(res, acmeVP, candidates("New thing", "new thing "), "c.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 1, Duplicates: 1}, result)
}

func TestMergeUpgradesLegacyList(t *testing.T) {
	res := load(t)
	target := resume.Target{EmployerID: "acme", Title: "Director"}

	match, result, err := newEngine().File(res, target, candidates("built the analytics practice", "Hired 4 analysts"), "d.docx", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 1, Duplicates: 1}, result)

	pos := match.Position
	assert.False(t, pos.IsLegacy())
	require.Len(t, pos.Groups, 2)
	assert.Equal(t, resume.LegacyCategory, pos.Groups[0].Category)
	assert.Equal(t, []resume.Item{resume.LegacyText("Built the analytics practice")}, pos.Groups[0].Items)
}

func TestMergeNothingNewLeavesLegacyAlone(t *testing.T) {
	res := load(t)
	target := resume.Target{EmployerID: "acme", Title: "Director"}

	match, result, err := newEngine().File(res, target, candidates("Built the analytics practice"), "e.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 0, Duplicates: 1}, result)
	assert.True(t, match.Position.IsLegacy())
}

func TestMergeDoesNotMutateCandidates(t *testing.T) {
	res := load(t)
	batch := candidates("Fresh")

	_, _, err := newEngine().File(res, acmeVP, batch, "f.txt", StrategyDeduplicate)
	require.NoError(t, err)
	assert.Empty(t, batch[0].SourceDocument)
}

func TestMergeKeepsExistingProvenance(t *testing.T) {
	res := load(t)
	batch := candidates("Fresh")
	batch[0].SourceDocument = "original.pdf"
	batch[0].ExtractedDate = "2020-01-01"

	match, _, err := newEngine().File(res, acmeVP, batch, "g.txt", StrategyDeduplicate)
	require.NoError(t, err)

	item := match.Position.Groups[1].Items[0].(*resume.Achievement)
	assert.Equal(t, "original.pdf", item.SourceDocument)
	assert.Equal(t, "2020-01-01", item.ExtractedDate)
}

func TestMergeStrategies(t *testing.T) {
	t.Run("append keeps duplicates", func(t *testing.T) {
		res := load(t)
		match, result, err := newEngine().File(res, acmeVP, candidates("Led team of 5"), "h.txt", StrategyAppend)
		require.NoError(t, err)
		assert.Equal(t, Result{New: 1}, result)
		assert.Len(t, match.Position.Items(), 2)
	})

	t.Run("replace drops existing", func(t *testing.T) {
		res := load(t)
		target := resume.Target{EmployerID: "acme", Title: "Director"}
		match, result, err := newEngine().File(res, target, candidates("Only this"), "i.txt", StrategyReplace)
		require.NoError(t, err)
		assert.Equal(t, Result{New: 1}, result)
		assert.False(t, match.Position.IsLegacy())
		require.Len(t, match.Position.Groups, 1)
		assert.Equal(t, "Extracted from i.txt", match.Position.Groups[0].Category)
	})

	t.Run("unknown", func(t *testing.T) {
		res := load(t)
		_, _, err := newEngine().File(res, acmeVP, candidates("x"), "j.txt", Strategy("merge-all"))
		require.Error(t, err)
	})
}

func TestMergeUnresolvedTarget(t *testing.T) {
	res := load(t)

	_, _, err := newEngine().File(res, resume.Target{EmployerID: "globex", Title: "CEO"}, candidates("x"), "k.txt", StrategyDeduplicate)
	var notFound *resume.EmployerNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Strategy{
		"":            StrategyDeduplicate,
		"deduplicate": StrategyDeduplicate,
		" Append ":    StrategyAppend,
		"REPLACE":     StrategyReplace,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("merge")
	assert.Error(t, err)
}
