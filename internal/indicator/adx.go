package indicator

import (
	"math"
)

// ADXResult bundles the average directional index with its directional
// components, all aligned by index with the input series.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX computes the average directional index together with +DI and -DI.
// Directional movements are clipped to >= 0 and mutually exclusive: when
// both the up move and the down move are positive, only the larger one
// counts. Degenerate bars where the ATR or the DI sum is zero produce a
// zero DI/DX instead of dividing by zero.
func ADX(high, low, close []float64, length int) (ADXResult, error) {
	if err := checkAligned(high, low, close); err != nil {
		return ADXResult{}, err
	}

	n := len(high)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	if n > 0 {
		plusDM[0] = math.NaN()
		minusDM[0] = math.NaN()
	}

	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]

		if up > down && up > 0 {
			plusDM[i] = up
		}

		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smoothedPlus, err := EMA(plusDM, length)
	if err != nil {
		return ADXResult{}, err
	}

	smoothedMinus, err := EMA(minusDM, length)
	if err != nil {
		return ADXResult{}, err
	}

	atr, err := ATR(high, low, close, length)
	if err != nil {
		return ADXResult{}, err
	}

	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)

	for i := 0; i < n; i++ {
		if math.IsNaN(smoothedPlus[i]) || math.IsNaN(smoothedMinus[i]) || math.IsNaN(atr[i]) {
			plusDI[i] = math.NaN()
			minusDI[i] = math.NaN()
			dx[i] = math.NaN()

			continue
		}

		if atr[i] == 0 {
			plusDI[i] = 0
			minusDI[i] = 0
		} else {
			plusDI[i] = 100 * smoothedPlus[i] / atr[i]
			minusDI[i] = 100 * smoothedMinus[i] / atr[i]
		}

		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
	}

	adx, err := EMA(dx, length)
	if err != nil {
		return ADXResult{}, err
	}

	return ADXResult{
		ADX:     adx,
		PlusDI:  plusDI,
		MinusDI: minusDI,
	}, nil
}
