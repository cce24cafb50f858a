package matching

import (
	"fmt"

	"github.com/spigell/skill-matcher/internal/index"
)

// ScoreDamping is the half-saturation point of Normalize: a raw score of
// ScoreDamping normalizes to 0.5.
const ScoreDamping = 100

// Normalize maps a raw relevance score into [0,1) preserving order.
func Normalize(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (ScoreDamping + score)
}

// RescaleScript is Normalize expressed as an index script, for servers that rescale before sorting.
func RescaleScript() string {
	return fmt.Sprintf("_score / (%d + _score)", ScoreDamping)
}

func normalizedScore(hit index.Hit) float64 {
	if hit.Rescaled {
		return hit.Score
	}
	return Normalize(hit.Score)
}
