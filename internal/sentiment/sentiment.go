// Package sentiment abstracts external crypto sentiment scoring. Scores are
// normalized to [-1, 1]; any failure or disabled state yields a neutral 0
// so strategies never have to handle a sentiment error path.
package sentiment

// Provider exposes a sentiment score for an asset slug. Implementations
// must never return values outside [-1, 1] and must degrade to 0 instead
// of failing.
type Provider interface {
	Score(slug string) float64
}

// Neutral is a Provider that always reports 0. Used when sentiment gating
// is disabled.
type Neutral struct{}

// NewNeutral creates a neutral sentiment provider.
func NewNeutral() *Neutral {
	return &Neutral{}
}

// Score implements Provider.
func (n *Neutral) Score(slug string) float64 {
	return 0
}

// Static serves fixed scores from a slug map. Unknown slugs score 0.
// Useful for tests and for replaying recorded sentiment snapshots.
type Static struct {
	scores map[string]float64
}

// NewStatic creates a static sentiment provider over the given scores.
func NewStatic(scores map[string]float64) *Static {
	return &Static{scores: scores}
}

// Score implements Provider.
func (s *Static) Score(slug string) float64 {
	score, ok := s.scores[slug]
	if !ok {
		return 0
	}

	return clamp(score)
}

// clamp bounds a score to [-1, 1].
func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}

	if score < -1 {
		return -1
	}

	return score
}
