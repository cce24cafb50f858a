// Package matching turns a person's rated skills into occupation and skill matchings.
package matching

import (
	"math"
	"sort"

	"github.com/spigell/skill-matcher/internal/aptitude"
)

const boostPrecision = 1e4

// Boost maps a rating onto its query weight: 0 -> 0.8, 1 -> 1.0, 5 -> 1.8.
// The result is rounded to four decimals so equal ratings always land in the same bucket.
func Boost(value float64) float64 {
	return math.Round((1+(value-1)/5)*boostPrecision) / boostPrecision
}

// BoostMap groups skill ids by boost weight.
type BoostMap map[float64][]string

type Bucket struct {
	Boost    float64
	SkillIDs []string
}

// BucketRatings groups ratings by Boost. Skill ids keep their input order inside a bucket.
func BucketRatings(ratings []aptitude.SkillRating) BoostMap {
	boosts := make(BoostMap)
	for _, r := range ratings {
		if r.SkillID == "" {
			continue
		}
		w := Boost(r.Value)
		boosts[w] = append(boosts[w], r.SkillID)
	}

	return boosts
}

// Buckets returns the buckets ordered by descending boost.
func (b BoostMap) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(b))
	for w, ids := range b {
		buckets = append(buckets, Bucket{Boost: w, SkillIDs: ids})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Boost > buckets[j].Boost })

	return buckets
}
