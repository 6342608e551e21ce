package indicator

import (
	"math"

	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// StochasticResult holds the smoothed %K and %D oscillator lines.
type StochasticResult struct {
	PercentK []float64
	PercentD []float64
}

// Stochastic computes the stochastic oscillator. The raw %K measures where
// the close sits inside the trailing kLength high/low range; a flat window
// where that range is zero yields a neutral 50 instead of dividing by
// zero. %K is the raw value smoothed with an EMA of smoothK, and %D is the
// simple rolling mean of %K over dLength.
func Stochastic(high, low, close []float64, kLength, dLength, smoothK int) (StochasticResult, error) {
	if err := checkAligned(high, low, close); err != nil {
		return StochasticResult{}, err
	}

	if kLength <= 0 || dLength <= 0 || smoothK <= 0 {
		return StochasticResult{}, errors.Newf(errors.ErrCodeInvalidPeriod,
			"stochastic lengths must be positive, got k=%d d=%d smooth_k=%d", kLength, dLength, smoothK)
	}

	lowest := rollingMin(low, kLength)
	highest := rollingMax(high, kLength)
	raw := make([]float64, len(close))

	for i := range raw {
		if math.IsNaN(lowest[i]) || math.IsNaN(highest[i]) {
			raw[i] = math.NaN()

			continue
		}

		priceRange := highest[i] - lowest[i]
		if priceRange == 0 {
			raw[i] = 50

			continue
		}

		raw[i] = 100 * (close[i] - lowest[i]) / priceRange
	}

	percentK, err := EMA(raw, smoothK)
	if err != nil {
		return StochasticResult{}, err
	}

	return StochasticResult{
		PercentK: percentK,
		PercentD: rollingMean(percentK, dLength),
	}, nil
}
