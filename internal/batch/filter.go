package batch

import (
	"slices"
	"strings"

	"github.com/spigell/resume-keeper/internal/extraction"

	"go.uber.org/zap"
)

// Filter narrows the positions an identification step found down to the ones
// worth extracting.
type Filter interface {
	Name() string
	Apply(positions []extraction.PositionCandidate) ([]extraction.PositionCandidate, Step)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DefaultFilters keeps high and medium confidence positions that have
// something to extract.
func DefaultFilters() []Filter {
	return []Filter{NewConfidence(), NewContent()}
}

// RunFilters applies steps in order.
func RunFilters(steps []Filter, positions []extraction.PositionCandidate, log *zap.Logger) []extraction.PositionCandidate {
	for _, step := range steps {
		next, info := step.Apply(positions)
		log.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		positions = next
	}
	return positions
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: step.Name()})
	}
	return statuses
}

type confidenceFilter struct {
	levels []string
}

// NewConfidence keeps positions identified with one of levels. Without levels
// it keeps high and medium.
func NewConfidence(levels ...string) Filter {
	if len(levels) == 0 {
		levels = []string{extraction.ConfidenceHigh, extraction.ConfidenceMedium}
	}
	normalized := make([]string, 0, len(levels))
	for _, l := range levels {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(l)))
	}
	return &confidenceFilter{levels: normalized}
}

func (f *confidenceFilter) Name() string { return "confidence" }

func (f *confidenceFilter) Apply(positions []extraction.PositionCandidate) ([]extraction.PositionCandidate, Step) {
	return keep(positions, func(p extraction.PositionCandidate) bool {
		return slices.Contains(f.levels, p.Confidence)
	})
}

func (f *confidenceFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"levels": strings.Join(f.levels, ",")}}
}

type contentFilter struct{}

// NewContent drops positions the document only mentions in passing.
func NewContent() Filter {
	return contentFilter{}
}

func (contentFilter) Name() string { return "content" }

func (contentFilter) Apply(positions []extraction.PositionCandidate) ([]extraction.PositionCandidate, Step) {
	return keep(positions, func(p extraction.PositionCandidate) bool {
		return p.HasExtractableContent
	})
}

func keep(positions []extraction.PositionCandidate, ok func(extraction.PositionCandidate) bool) ([]extraction.PositionCandidate, Step) {
	initial := len(positions)
	kept := make([]extraction.PositionCandidate, 0, initial)
	for _, p := range positions {
		if ok(p) {
			kept = append(kept, p)
		}
	}
	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}
