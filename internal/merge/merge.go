// Package merge files newly extracted achievements under an existing position
// without duplicating what is already there.
package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/resume-keeper/internal/resume"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Strategy controls how candidates are combined with existing achievements.
type Strategy string

const (
	// StrategyDeduplicate appends only candidates whose text is not already present.
	StrategyDeduplicate Strategy = "deduplicate"
	// StrategyAppend appends every candidate.
	StrategyAppend Strategy = "append"
	// StrategyReplace drops existing achievements and stores the candidates instead.
	StrategyReplace Strategy = "replace"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyDeduplicate, nil
	case StrategyDeduplicate, StrategyAppend, StrategyReplace:
		return st, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q (valid: deduplicate, append, replace)", s)
	}
}

// Result reports what a merge did.
type Result struct {
	New        int
	Duplicates int
}

type Engine struct {
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, now: time.Now}
}

// File resolves target in res and merges candidates into the matched position.
func (e *Engine) File(res *resume.Resume, target resume.Target, candidates []*resume.Achievement, source string, strategy Strategy) (*resume.Match, Result, error) {
	match, err := res.FindPosition(target, e.logger)
	if err != nil {
		return nil, Result{}, err
	}

	result, err := e.MergeWith(strategy, match.Position, candidates, source)
	if err != nil {
		return match, Result{}, err
	}
	return match, result, nil
}

// Merge is the deduplicating merge.
func (e *Engine) Merge(pos *resume.Position, candidates []*resume.Achievement, source string) Result {
	fresh, duplicates := Split(pos.Items(), candidates)

	for _, c := range duplicates {
		e.logger.Debug("skipping duplicate achievement", zap.String("text", c.Text))
	}

	if len(fresh) > 0 {
		pos.AppendGroup(e.newGroup(fresh, source))
	}

	e.logger.Info("merged achievements",
		zap.String("title", pos.Title),
		zap.String("source", source),
		zap.Int("new", len(fresh)),
		zap.Int("duplicates", len(duplicates)),
	)

	return Result{New: len(fresh), Duplicates: len(duplicates)}
}

// MergeWith applies the given strategy.
func (e *Engine) MergeWith(strategy Strategy, pos *resume.Position, candidates []*resume.Achievement, source string) (Result, error) {
	switch strategy {
	case StrategyDeduplicate, "":
		return e.Merge(pos, candidates, source), nil
	case StrategyAppend:
		if len(candidates) > 0 {
			pos.AppendGroup(e.newGroup(candidates, source))
		}
		return Result{New: len(candidates)}, nil
	case StrategyReplace:
		groups := make([]*resume.Group, 0, 1)
		if len(candidates) > 0 {
			groups = append(groups, e.newGroup(candidates, source))
		}
		dropped := len(pos.Items())
		pos.ReplaceGroups(groups)
		e.logger.Warn("replaced position achievements",
			zap.String("title", pos.Title),
			zap.Int("dropped", dropped),
			zap.Int("new", len(candidates)),
		)
		return Result{New: len(candidates)}, nil
	default:
		return Result{}, fmt.Errorf("unknown merge strategy %q", strategy)
	}
}

// Split separates candidates into fresh ones and duplicates of existing items
// or of earlier candidates. Comparison uses resume.DedupKey only.
func Split(existing []resume.Item, candidates []*resume.Achievement) (fresh, duplicates []*resume.Achievement) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, it := range existing {
		seen[resume.DedupKey(resume.Normalize(it).Text)] = struct{}{}
	}

	for _, c := range candidates {
		key := resume.DedupKey(c.Text)
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, c)
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, duplicates
}

// CategoryLabel is the group name used for a source file.
func CategoryLabel(source string) string {
	return "Extracted from " + source
}

func (e *Engine) newGroup(items []*resume.Achievement, source string) *resume.Group {
	date := e.now().Format(dateLayout)

	g := &resume.Group{
		Category:       CategoryLabel(source),
		Source:         source,
		ExtractionDate: date,
		Items:          make([]resume.Item, 0, len(items)),
	}
	for _, it := range items {
		stamped := *it
		if stamped.SourceDocument == "" {
			stamped.SourceDocument = source
		}
		if stamped.ExtractedDate == "" {
			stamped.ExtractedDate = date
		}
		g.Items = append(g.Items, &stamped)
	}
	return g
}
