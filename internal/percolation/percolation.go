// Package percolation finds the registered skills whose queries match a document.
package percolation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const (
	DefaultMaxMatches = 10000

	opPercolate = "percolate"
	kindCV      = "cv_skills"
)

type Matcher struct {
	logger     *zap.Logger
	metrics    *metrics.Metrics
	gateway    index.Gateway
	index      string
	maxMatches int
}

func NewMatcher(log *zap.Logger, m *metrics.Metrics, gw index.Gateway, indexName string, maxMatches int) *Matcher {
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	return &Matcher{
		logger:     logger.OrNop(log),
		metrics:    m,
		gateway:    gw,
		index:      indexName,
		maxMatches: maxMatches,
	}
}

// Match returns the page [offset, offset+limit) of the skills matching text, in index order.
func (m *Matcher) Match(ctx context.Context, text string, limit, offset int) (*Connection, error) {
	all, total, err := m.percolate(ctx, text, false)
	if err != nil {
		return nil, err
	}

	conn := NewConnection(all, limit, offset)
	if total > conn.TotalCount {
		m.logger.Warn("percolation matches truncated",
			zap.Int("total", total),
			zap.Int("kept", conn.TotalCount),
		)
	}

	m.metrics.ObserveEmitted(kindCV, len(conn.Edges))

	return conn, nil
}

// Count returns the number of skills matching text. It equals the TotalCount Match reports.
func (m *Matcher) Count(ctx context.Context, text string) (int, error) {
	_, total, err := m.percolate(ctx, text, true)
	if err != nil {
		return 0, err
	}
	return min(total, m.maxMatches), nil
}

func (m *Matcher) percolate(ctx context.Context, text string, justCount bool) ([]CandidateSkill, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, failure.Retrieval(opPercolate, err)
	}

	result, err := m.gateway.Percolate(ctx, &index.PercolateRequest{
		Index:     m.index,
		Field:     index.DefaultPercolatorField,
		Document:  map[string]any{index.ContentField: text},
		Size:      m.maxMatches,
		JustCount: justCount,
		Source:    []string{index.FieldPrefLabel},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("percolating document: %w", err)
	}

	if justCount {
		return nil, result.Total, nil
	}

	skills := make([]CandidateSkill, 0, len(result.Matches))
	for _, hit := range result.Matches {
		if len(skills) == m.maxMatches {
			break
		}
		doc, err := index.DecodeSkill(hit)
		if err != nil {
			return nil, 0, failure.Retrieval("decode", err)
		}
		skills = append(skills, CandidateSkill{ID: doc.ID, PrefLabel: doc.PrefLabel})
	}

	return skills, result.Total, nil
}
