package matching

import (
	"github.com/spigell/skill-matcher/internal/index"
)

const defaultMaxHits = 500

type QueryOptions struct {
	Index   string
	MaxHits int
	// Rescale asks the index to apply Normalize before sorting.
	Rescale bool
}

// BuildMatchQuery combines every boost bucket into one request. It reports false
// when there is nothing to ask: no buckets and no restriction.
func BuildMatchQuery(boosts BoostMap, restrictTo []string, opts QueryOptions) (*index.SearchRequest, bool) {
	if len(boosts) == 0 && len(restrictTo) == 0 {
		return nil, false
	}

	size := opts.MaxHits
	if size <= 0 {
		size = defaultMaxHits
	}

	query := index.Query{}
	for _, bucket := range boosts.Buckets() {
		query.Should = append(query.Should, index.Similarity{
			Field:  index.FieldSkillIDs,
			Values: bucket.SkillIDs,
			Boost:  bucket.Boost,
		})
	}
	if len(query.Should) > 0 {
		query.MinimumShouldMatch = 1
	}

	if len(restrictTo) > 0 {
		query.Filters = append(query.Filters, index.TermsFilter{
			Field:  index.FieldRelatedOccupationID,
			Values: restrictTo,
		})
	}

	if opts.Rescale {
		query.RescaleScript = RescaleScript()
	}

	return &index.SearchRequest{
		Index: opts.Index,
		Query: query,
		Size:  size,
	}, true
}
