// Package aptitude reads a person's self-declared skill ratings.
package aptitude

import (
	"context"

	"github.com/spigell/skill-matcher/internal/failure"
)

const (
	MinRating = 0
	MaxRating = 5
)

// SkillRating is one rated skill of a person. Unrated skills carry Value 0.
type SkillRating struct {
	SkillID string
	Value   float64
	IsTop5  bool
}

// Store is the read source of ratings.
type Store interface {
	RatedSkillsOf(ctx context.Context, personID string) ([]SkillRating, error)
}

// StaticStore serves ratings from memory. Used by the CLI for ad-hoc ratings and by tests.
type StaticStore map[string][]SkillRating

func (s StaticStore) RatedSkillsOf(ctx context.Context, personID string) ([]SkillRating, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Retrieval(opAptitudes, err)
	}
	ratings := s[personID]
	out := make([]SkillRating, len(ratings))
	copy(out, ratings)

	return out, nil
}

func clampRating(v float64) float64 {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}
