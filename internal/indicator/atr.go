package indicator

import (
	"math"
)

// TrueRange computes the per-bar true range over aligned high/low/close
// series. The first bar has no previous close and falls back to high-low.
func TrueRange(high, low, close []float64) []float64 {
	tr := make([]float64, len(high))

	for i := range high {
		if i == 0 {
			tr[0] = high[0] - low[0]

			continue
		}

		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	return tr
}

// ATR computes the average true range: the true range smoothed with the
// same recursive EMA used by every other indicator.
func ATR(high, low, close []float64, length int) ([]float64, error) {
	if err := checkAligned(high, low, close); err != nil {
		return nil, err
	}

	return EMA(TrueRange(high, low, close), length)
}
