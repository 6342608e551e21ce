package indicator

import (
	"math"
)

// RSI computes the relative strength index. Positive and negative price
// deltas are smoothed separately with the recursive EMA. When the average
// loss is zero the index saturates at 100 instead of dividing by zero, so
// flat or monotonically rising series stay defined.
func RSI(values []float64, length int) ([]float64, error) {
	n := len(values)
	gains := make([]float64, n)
	losses := make([]float64, n)

	if n > 0 {
		// No delta exists for the first sample.
		gains[0] = math.NaN()
		losses[0] = math.NaN()
	}

	for i := 1; i < n; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain, err := EMA(gains, length)
	if err != nil {
		return nil, err
	}

	avgLoss, err := EMA(losses, length)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)

	for i := range out {
		switch {
		case math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]):
			out[i] = math.NaN()
		case avgLoss[i] == 0:
			out[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		}
	}

	return out, nil
}
