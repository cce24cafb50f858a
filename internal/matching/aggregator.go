package matching

import (
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/logger"
)

const DefaultThresholdScore = 0.15

type SubOccupation struct {
	ID        string  `json:"id"`
	PrefLabel string  `json:"prefLabel"`
	Score     float64 `json:"score"`
}

type OccupationMatching struct {
	CategoryID     string          `json:"categoryId"`
	CategoryName   string          `json:"categoryName"`
	Score          float64         `json:"score"`
	SubOccupations []SubOccupation `json:"subOccupations,omitempty"`
}

type AggregateOptions struct {
	ThresholdScore float64
	Light          bool
	RestrictTo     []string
}

// Aggregate rolls ranked occupation hits up into categories. Hits must come in
// descending score order; the first hit of a category sets its score and
// categories are emitted in the order they first appear.
func Aggregate(log *zap.Logger, hits []index.Hit, opts AggregateOptions) ([]OccupationMatching, error) {
	log = logger.OrNop(log)

	scored := make([]scoredHit, 0, len(hits))
	for _, h := range hits {
		doc, err := index.DecodeOccupation(h)
		if err != nil {
			return nil, failure.Retrieval("decode", err)
		}
		scored = append(scored, scoredHit{doc: doc, score: normalizedScore(h)})
	}

	scored = runFilters(log, []Filter{
		NewThreshold(opts.ThresholdScore),
		NewRestriction(opts.RestrictTo),
		NewSpecificOccupation(),
	}, scored)

	matchings := make([]OccupationMatching, 0)
	position := make(map[string]int)
	for _, h := range scored {
		category := h.doc.RelatedOccupationID

		i, seen := position[category]
		if !seen {
			i = len(matchings)
			position[category] = i
			m := OccupationMatching{
				CategoryID:   category,
				CategoryName: h.doc.RelatedOccupationLabel,
				Score:        h.score,
			}
			if !opts.Light {
				m.SubOccupations = make([]SubOccupation, 0, 1)
			}
			matchings = append(matchings, m)
		}

		if opts.Light {
			continue
		}
		matchings[i].SubOccupations = append(matchings[i].SubOccupations, SubOccupation{
			ID:        h.doc.ID,
			PrefLabel: h.doc.PrefLabel,
			Score:     h.score,
		})
	}

	return matchings, nil
}
