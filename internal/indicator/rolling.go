package indicator

import "math"

// rollingMin returns the trailing-window minimum of values. Indices before
// the window fills, and any window containing a NaN, produce NaN.
func rollingMin(values []float64, window int) []float64 {
	return rollingApply(values, window, func(w []float64) float64 {
		min := w[0]
		for _, v := range w[1:] {
			if v < min {
				min = v
			}
		}

		return min
	})
}

// rollingMax returns the trailing-window maximum of values.
func rollingMax(values []float64, window int) []float64 {
	return rollingApply(values, window, func(w []float64) float64 {
		max := w[0]
		for _, v := range w[1:] {
			if v > max {
				max = v
			}
		}

		return max
	})
}

// rollingMean returns the trailing-window simple average of values.
func rollingMean(values []float64, window int) []float64 {
	return rollingApply(values, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}

		return sum / float64(len(w))
	})
}

func rollingApply(values []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))

	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()

			continue
		}

		w := values[i-window+1 : i+1]

		hasNaN := false

		for _, v := range w {
			if math.IsNaN(v) {
				hasNaN = true

				break
			}
		}

		if hasNaN {
			out[i] = math.NaN()

			continue
		}

		out[i] = fn(w)
	}

	return out
}
