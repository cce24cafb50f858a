package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const (
	kindOccupations = "occupations"
	kindSkills      = "skills"
)

// Deps aggregates the collaborators shared by the matchers.
type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Store   aptitude.Store
	Gateway index.Gateway
	Names   index.Names
	MaxHits int
	Rescale bool
}

type OccupationRequest struct {
	PersonID       string
	RestrictTo     []string
	ThresholdScore float64
	Light          bool
}

type OccupationMatcher struct {
	deps Deps
}

func NewOccupationMatcher(deps Deps) *OccupationMatcher {
	deps.Logger = logger.OrNop(deps.Logger)
	return &OccupationMatcher{deps: deps}
}

func (m *OccupationMatcher) Match(ctx context.Context, req OccupationRequest) ([]OccupationMatching, error) {
	log := logger.WithCommonFields(m.deps.Logger, req.PersonID, "")

	ratings, err := m.deps.Store.RatedSkillsOf(ctx, req.PersonID)
	if err != nil {
		return nil, fmt.Errorf("loading ratings: %w", err)
	}

	boosts := BucketRatings(ratings)
	search, ok := BuildMatchQuery(boosts, req.RestrictTo, QueryOptions{
		Index:   m.deps.Names.Occupations(),
		MaxHits: m.deps.MaxHits,
		Rescale: m.deps.Rescale,
	})
	if !ok {
		log.Debug("no rated skills and no restriction, skipping search")
		m.deps.Metrics.ObserveEmitted(kindOccupations, 0)
		return []OccupationMatching{}, nil
	}

	result, err := m.deps.Gateway.Search(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("searching occupations: %w", err)
	}

	matchings, err := Aggregate(log, result.Hits, AggregateOptions{
		ThresholdScore: req.ThresholdScore,
		Light:          req.Light,
		RestrictTo:     req.RestrictTo,
	})
	if err != nil {
		return nil, err
	}

	log.Info("occupations matched",
		zap.Int("buckets", len(boosts)),
		zap.Int("hits", len(result.Hits)),
		zap.Int("categories", len(matchings)),
	)
	m.deps.Metrics.ObserveEmitted(kindOccupations, len(matchings))

	return matchings, nil
}
