package matching

import (
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/index"
)

// scoredHit is an occupation hit with its normalized score.
type scoredHit struct {
	doc   *index.OccupationDocument
	score float64
}

// Filter is one step applied to ranked hits. Steps never reorder hits.
type Filter interface {
	Name() string
	IsEnabled() bool
	Apply(hits []scoredHit) ([]scoredHit, Step)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// runFilters executes the supplied filters sequentially.
func runFilters(log *zap.Logger, steps []Filter, hits []scoredHit) []scoredHit {
	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		var info Step
		hits, info = step.Apply(hits)

		log.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
	}

	return hits
}

func keep(hits []scoredHit, pred func(scoredHit) bool) ([]scoredHit, Step) {
	kept := make([]scoredHit, 0, len(hits))
	for _, h := range hits {
		if pred(h) {
			kept = append(kept, h)
		}
	}

	return kept, Step{Initial: len(hits), Dropped: len(hits) - len(kept), Left: len(kept)}
}

type thresholdFilter struct {
	threshold float64
}

// NewThreshold drops hits whose normalized score is below threshold.
func NewThreshold(threshold float64) Filter {
	return &thresholdFilter{threshold: threshold}
}

func (f *thresholdFilter) Name() string { return "threshold" }

func (f *thresholdFilter) IsEnabled() bool { return true }

func (f *thresholdFilter) Apply(hits []scoredHit) ([]scoredHit, Step) {
	return keep(hits, func(h scoredHit) bool { return h.score >= f.threshold })
}

type restrictionFilter struct {
	allowed map[string]struct{}
}

// NewRestriction keeps hits whose category is one of ids. It is disabled when ids is empty.
func NewRestriction(ids []string) Filter {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return &restrictionFilter{allowed: allowed}
}

func (f *restrictionFilter) Name() string { return "restriction" }

func (f *restrictionFilter) IsEnabled() bool { return len(f.allowed) > 0 }

func (f *restrictionFilter) Apply(hits []scoredHit) ([]scoredHit, Step) {
	return keep(hits, func(h scoredHit) bool {
		_, ok := f.allowed[h.doc.RelatedOccupationID]
		return ok
	})
}

type specificOccupationFilter struct{}

// NewSpecificOccupation drops category documents and documents without a category.
func NewSpecificOccupation() Filter {
	return &specificOccupationFilter{}
}

func (f *specificOccupationFilter) Name() string { return "specific_occupation" }

func (f *specificOccupationFilter) IsEnabled() bool { return true }

func (f *specificOccupationFilter) Apply(hits []scoredHit) ([]scoredHit, Step) {
	return keep(hits, func(h scoredHit) bool {
		return !h.doc.IsGenericCategory && h.doc.RelatedOccupationID != ""
	})
}
