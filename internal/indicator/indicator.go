// Package indicator provides pure, causal technical indicator calculations
// over ordered price series. Every function returns an output slice aligned
// by index with its input, with NaN entries for the leading warm-up span
// where the indicator is mathematically undefined. A value at index i
// depends only on inputs at indices <= i.
package indicator

import (
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// checkAligned verifies that all series have the same length.
func checkAligned(series ...[]float64) error {
	if len(series) == 0 {
		return nil
	}

	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) != n {
			return errors.Newf(errors.ErrCodeInvalidParameter, "series length mismatch: %d vs %d", n, len(s))
		}
	}

	return nil
}

// Closes extracts the close column from a bar series.
func Closes(bars []types.MarketData) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}

// Highs extracts the high column from a bar series.
func Highs(bars []types.MarketData) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}

	return out
}

// Lows extracts the low column from a bar series.
func Lows(bars []types.MarketData) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}

	return out
}
