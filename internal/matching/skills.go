package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/logger"
)

const defaultMaxSkills = 1000

type SkillMatching struct {
	ID        string  `json:"id"`
	PrefLabel string  `json:"prefLabel"`
	Score     float64 `json:"score"`
}

type SkillMatcher struct {
	deps Deps
}

func NewSkillMatcher(deps Deps) *SkillMatcher {
	deps.Logger = logger.OrNop(deps.Logger)
	return &SkillMatcher{deps: deps}
}

// Match scores every skill of the occupation's category against the person's ratings.
// Skills the person has come first, the rest after; both keep the index order.
func (m *SkillMatcher) Match(ctx context.Context, personID, occupationID string) ([]SkillMatching, error) {
	log := logger.WithCommonFields(m.deps.Logger, personID, occupationID)

	ratings, err := m.deps.Store.RatedSkillsOf(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("loading ratings: %w", err)
	}
	owned := ratingScores(ratings)

	size := m.deps.MaxHits
	if size <= 0 {
		size = defaultMaxSkills
	}

	result, err := m.deps.Gateway.Search(ctx, &index.SearchRequest{
		Index: m.deps.Names.Skills(),
		Query: index.Query{
			Filters: []index.TermsFilter{{
				Field:  index.FieldOccupationCategoryIDs,
				Values: []string{occupationID},
			}},
		},
		Size:   size,
		Sort:   []index.Sort{{Field: index.FieldPrefLabelKeyword}},
		Source: []string{index.FieldPrefLabel},
	})
	if err != nil {
		return nil, fmt.Errorf("searching skills: %w", err)
	}

	skills := make([]SkillMatching, 0, len(result.Hits))
	for _, h := range result.Hits {
		doc, err := index.DecodeSkill(h)
		if err != nil {
			return nil, failure.Retrieval("decode", err)
		}
		skills = append(skills, SkillMatching{
			ID:        doc.ID,
			PrefLabel: doc.PrefLabel,
			Score:     owned[doc.ID],
		})
	}

	skills = partitionOwned(skills)

	log.Info("skills matched", zap.Int("skills", len(skills)), zap.Int("rated", len(owned)))
	m.deps.Metrics.ObserveEmitted(kindSkills, len(skills))

	return skills, nil
}

// ratingScores maps skill id to rating/5.
func ratingScores(ratings []aptitude.SkillRating) map[string]float64 {
	scores := make(map[string]float64, len(ratings))
	for _, r := range ratings {
		scores[r.SkillID] = r.Value / aptitude.MaxRating
	}
	return scores
}

// partitionOwned is a stable partition: positive scores first.
func partitionOwned(skills []SkillMatching) []SkillMatching {
	out := make([]SkillMatching, 0, len(skills))
	for _, s := range skills {
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	for _, s := range skills {
		if s.Score <= 0 {
			out = append(out, s)
		}
	}
	return out
}
