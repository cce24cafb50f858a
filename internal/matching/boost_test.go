package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/skill-matcher/internal/aptitude"
)

func TestBoost(t *testing.T) {
	tests := []struct {
		value float64
		want  float64
	}{
		{value: 0, want: 0.8},
		{value: 1, want: 1.0},
		{value: 2, want: 1.2},
		{value: 3, want: 1.4},
		{value: 4, want: 1.6},
		{value: 5, want: 1.8},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Boost(tt.value), "value %v", tt.value)
	}
}

func TestBucketRatings(t *testing.T) {
	boosts := BucketRatings([]aptitude.SkillRating{
		{SkillID: "A", Value: 5},
		{SkillID: "B", Value: 1},
		{SkillID: "C", Value: 5},
		{SkillID: "D"},
		{SkillID: ""},
	})

	assert.Equal(t, BoostMap{
		1.8: {"A", "C"},
		1.0: {"B"},
		0.8: {"D"},
	}, boosts)

	buckets := boosts.Buckets()
	require.Len(t, buckets, 3)
	assert.Equal(t, 1.8, buckets[0].Boost)
	assert.Equal(t, 1.0, buckets[1].Boost)
	assert.Equal(t, 0.8, buckets[2].Boost)
}

func TestBucketRatingsEmpty(t *testing.T) {
	assert.Empty(t, BucketRatings(nil))
}
