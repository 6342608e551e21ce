package indicator

import (
	"math"

	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// EMA computes the exponential moving average of values with smoothing
// factor alpha = 2/(length+1). The first finite sample seeds the average
// and every later sample follows the recursive update
//
//	ema[i] = alpha*value[i] + (1-alpha)*ema[i-1]
//
// Leading NaN entries pass through unchanged so derived inputs such as
// price deltas or raw oscillator values keep their warm-up alignment.
func EMA(values []float64, length int) ([]float64, error) {
	if length <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema length must be positive, got %d", length)
	}

	out := make([]float64, len(values))
	alpha := 2.0 / (float64(length) + 1.0)

	seeded := false

	var prev float64

	for i, v := range values {
		if !seeded {
			if math.IsNaN(v) {
				out[i] = math.NaN()

				continue
			}

			prev = v
			out[i] = v
			seeded = true

			continue
		}

		prev = alpha*v + (1-alpha)*prev
		out[i] = prev
	}

	return out, nil
}
