package audit

import (
	"strings"

	"github.com/spigell/resume-keeper/internal/logger"
	"github.com/spigell/resume-keeper/internal/resume"

	"go.uber.org/zap"
)

// Summary counts what Apply did. Every occurrence of a referenced text counts.
type Summary struct {
	Kept       int
	Edited     int
	Deleted    int
	Unreviewed int
	Downgraded int
	Pruned     int
}

// Changed reports whether the document was modified.
func (s Summary) Changed() bool {
	return s.Edited > 0 || s.Deleted > 0 || s.Pruned > 0
}

// Apply executes decisions across every position of res. Text matching is
// exact apart from surrounding whitespace, which the audit file does not keep.
// When the same text is decided twice the later decision wins.
func Apply(res *resume.Resume, decisions []Decision, log *zap.Logger) Summary {
	log = logger.WithFields(log)

	byText := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		byText[strings.TrimSpace(d.OriginalText)] = d
	}

	a := &applier{byText: byText, log: log}
	for _, ref := range res.Positions() {
		a.position(ref)
	}

	log.Info("applied audit decisions",
		zap.Int("kept", a.sum.Kept),
		zap.Int("edited", a.sum.Edited),
		zap.Int("deleted", a.sum.Deleted),
		zap.Int("unreviewed", a.sum.Unreviewed),
		zap.Int("pruned_groups", a.sum.Pruned),
	)
	return a.sum
}

type applier struct {
	byText map[string]Decision
	log    *zap.Logger
	sum    Summary
}

func (a *applier) position(ref resume.PositionRef) {
	pos := ref.Position
	log := a.log.With(logger.PositionFields(ref.Employer.ID, pos.Title)...)

	if pos.IsLegacy() {
		kept := make([]resume.LegacyText, 0, len(pos.Legacy))
		for _, t := range pos.Legacy {
			if it, keep := a.item(t, log); keep {
				kept = append(kept, it.(resume.LegacyText))
			}
		}
		pos.Legacy = kept
		return
	}

	for _, g := range pos.Groups {
		kept := make([]resume.Item, 0, len(g.Items))
		for _, it := range g.Items {
			if next, keep := a.item(it, log); keep {
				kept = append(kept, next)
			}
		}
		g.Items = kept
	}

	if n := pos.PruneEmptyGroups(); n > 0 {
		a.sum.Pruned += n
		log.Debug("pruned empty groups", zap.Int("count", n))
	}
}

// item applies the decision for it, if any, and reports whether it stays.
func (a *applier) item(it resume.Item, log *zap.Logger) (resume.Item, bool) {
	text := it.ItemText()
	d, ok := a.byText[strings.TrimSpace(text)]
	if !ok {
		if !hasProvenance(it) {
			a.sum.Unreviewed++
			log.Warn("unreviewed achievement is not in the audit", logger.Text(text))
		}
		return it, true
	}

	switch d.Kind {
	case Delete:
		a.sum.Deleted++
		log.Info("deleted achievement", logger.Text(text))
		return nil, false
	case Edit:
		if d.EditedText == "" {
			a.sum.Downgraded++
			a.sum.Kept++
			log.Warn("EDIT without replacement text, keeping as is", logger.Text(text))
			return it, true
		}
		a.sum.Edited++
		log.Info("edited achievement", logger.Text(text), zap.String("new_text", logger.TruncateForLog(d.EditedText, logger.TextLimit)))
		switch v := it.(type) {
		case *resume.Achievement:
			v.Text = d.EditedText
			return v, true
		default:
			return resume.LegacyText(d.EditedText), true
		}
	default:
		a.sum.Kept++
		return it, true
	}
}

func hasProvenance(it resume.Item) bool {
	a, ok := it.(*resume.Achievement)
	return ok && a.HasProvenance()
}
