// Package engine is the boundary of the matching core: one typed method per operation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/extraction"
	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/matching"
	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/percolation"
)

const DefaultPercolationIndexSuffix = "_percolation"

type Engine interface {
	MatchOccupationsForPerson(ctx context.Context, q OccupationQuery) ([]matching.OccupationMatching, error)
	MatchSkillsForPersonAndOccupation(ctx context.Context, personID, occupationID string) ([]matching.SkillMatching, error)
	ExtractSkillsFromDocument(ctx context.Context, file File, limit, offset int) (*percolation.Connection, error)
	CountExtractableSkills(ctx context.Context, file File) (int, error)
}

type Config struct {
	IndexNamePrefix        string
	DefaultThresholdScore  float64 `validate:"gte=0,lte=1"`
	PercolationIndexSuffix string
	// MaxHits bounds a single occupation or skill search.
	MaxHits int `validate:"gte=0"`
	// MaxPercolationMatches bounds the full list a CV can match.
	MaxPercolationMatches int `validate:"gte=0"`
	// RescaleInIndex asks the index to normalize scores before sorting.
	RescaleInIndex bool
}

func DefaultConfig() Config {
	return Config{
		DefaultThresholdScore:  matching.DefaultThresholdScore,
		PercolationIndexSuffix: DefaultPercolationIndexSuffix,
		MaxPercolationMatches:  percolation.DefaultMaxMatches,
	}
}

type Deps struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Store     aptitude.Store
	Gateway   index.Gateway
	Extractor extraction.Extractor
}

// OccupationQuery asks for the occupation categories matching a person.
// A nil ThresholdScore falls back to the configured default.
type OccupationQuery struct {
	PersonID       string
	OccupationIDs  []string
	ThresholdScore *float64
	Light          bool
}

type File struct {
	Name     string
	MIMEType string
	Reader   io.Reader
}

type Service struct {
	cfg         Config
	logger      *zap.Logger
	extractor   extraction.Extractor
	occupations *matching.OccupationMatcher
	skills      *matching.SkillMatcher
	percolator  *percolation.Matcher
}

var _ Engine = (*Service)(nil)

func New(cfg Config, deps Deps) (*Service, error) {
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if deps.Store == nil || deps.Gateway == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("engine requires a store, a gateway and an extractor")
	}

	log := logger.OrNop(deps.Logger)
	names := index.Names{Prefix: cfg.IndexNamePrefix, PercolationSuffix: cfg.PercolationIndexSuffix}
	shared := matching.Deps{
		Logger:  log,
		Metrics: deps.Metrics,
		Store:   deps.Store,
		Gateway: deps.Gateway,
		Names:   names,
		MaxHits: cfg.MaxHits,
		Rescale: cfg.RescaleInIndex,
	}

	return &Service{
		cfg:         cfg,
		logger:      log,
		extractor:   deps.Extractor,
		occupations: matching.NewOccupationMatcher(shared),
		skills:      matching.NewSkillMatcher(shared),
		percolator:  percolation.NewMatcher(log, deps.Metrics, deps.Gateway, names.Percolation(), cfg.MaxPercolationMatches),
	}, nil
}

func (s *Service) MatchOccupationsForPerson(ctx context.Context, q OccupationQuery) ([]matching.OccupationMatching, error) {
	args := occupationArgs{
		PersonID:       strings.TrimSpace(q.PersonID),
		OccupationIDs:  compact(q.OccupationIDs),
		ThresholdScore: s.cfg.DefaultThresholdScore,
	}
	if q.ThresholdScore != nil {
		args.ThresholdScore = *q.ThresholdScore
	}
	if err := validate(args); err != nil {
		return nil, err
	}

	return s.occupations.Match(ctx, matching.OccupationRequest{
		PersonID:       args.PersonID,
		RestrictTo:     args.OccupationIDs,
		ThresholdScore: args.ThresholdScore,
		Light:          q.Light,
	})
}

func (s *Service) MatchSkillsForPersonAndOccupation(ctx context.Context, personID, occupationID string) ([]matching.SkillMatching, error) {
	args := skillArgs{
		PersonID:     strings.TrimSpace(personID),
		OccupationID: strings.TrimSpace(occupationID),
	}
	if err := validate(args); err != nil {
		return nil, err
	}

	return s.skills.Match(ctx, args.PersonID, args.OccupationID)
}

func (s *Service) ExtractSkillsFromDocument(ctx context.Context, file File, limit, offset int) (*percolation.Connection, error) {
	if err := validate(pageArgs{Limit: limit, Offset: offset}); err != nil {
		return nil, err
	}

	text, err := s.extract(ctx, file)
	if err != nil {
		return nil, err
	}

	return s.percolator.Match(ctx, text, limit, offset)
}

func (s *Service) CountExtractableSkills(ctx context.Context, file File) (int, error) {
	text, err := s.extract(ctx, file)
	if err != nil {
		return 0, err
	}

	return s.percolator.Count(ctx, text)
}

func (s *Service) extract(ctx context.Context, file File) (string, error) {
	if file.Reader == nil {
		return "", failure.Invalid("file", "is required")
	}

	text, err := s.extractor.Extract(ctx, file.MIMEType, file.Reader)
	if err != nil {
		s.logger.Warn("cv extraction failed",
			zap.String("file", file.Name),
			zap.String("mime_type", file.MIMEType),
			zap.Error(err),
		)
		return "", fmt.Errorf("extracting %q: %w", file.Name, err)
	}

	return text, nil
}

// LegacyJSON renders matchings as the JSON string older clients read from a single scalar field.
func LegacyJSON(matchings []matching.OccupationMatching) (string, error) {
	if matchings == nil {
		matchings = []matching.OccupationMatching{}
	}
	data, err := json.Marshal(matchings)
	if err != nil {
		return "", fmt.Errorf("encoding legacy matchings: %w", err)
	}
	return string(data), nil
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
