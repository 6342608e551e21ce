package indicator

import (
	"math"

	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// Column names shared by the strategies that build frames.
const (
	ColumnEMAFast  = "ema_fast"
	ColumnEMASlow  = "ema_slow"
	ColumnEMATrend = "ema_trend"
	ColumnATR      = "atr"
	ColumnADX      = "adx"
	ColumnRSI      = "rsi"
	ColumnStochK   = "stoch_k"
	ColumnStochD   = "stoch_d"
)

// Frame couples a bar series with computed indicator columns aligned by
// index. Rows whose indicator values are still in their warm-up span can
// be removed with DropUndefined before signal evaluation; the underlying
// bars themselves are never mutated.
type Frame struct {
	bars    []types.MarketData
	columns map[string][]float64
	order   []string
}

// NewFrame creates a frame over the given bar series with no columns.
func NewFrame(bars []types.MarketData) *Frame {
	return &Frame{
		bars:    bars,
		columns: make(map[string][]float64),
	}
}

// SetColumn attaches a computed column to the frame. The column must have
// the same length as the bar series.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.bars) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"column %q length %d does not match series length %d", name, len(values), len(f.bars))
	}

	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}

	f.columns[name] = values

	return nil
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int {
	return len(f.bars)
}

// Bar returns the bar at row i.
func (f *Frame) Bar(i int) types.MarketData {
	return f.bars[i]
}

// Value returns the value of the named column at row i, or NaN when the
// column does not exist.
func (f *Frame) Value(name string, i int) float64 {
	col, ok := f.columns[name]
	if !ok {
		return math.NaN()
	}

	return col[i]
}

// Column returns the named column and whether it exists.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]

	return col, ok
}

// DropUndefined returns a new frame containing only the rows where every
// column holds a finite value. Row order is preserved.
func (f *Frame) DropUndefined() *Frame {
	keep := make([]int, 0, len(f.bars))

	for i := range f.bars {
		defined := true

		for _, name := range f.order {
			if math.IsNaN(f.columns[name][i]) {
				defined = false

				break
			}
		}

		if defined {
			keep = append(keep, i)
		}
	}

	out := &Frame{
		bars:    make([]types.MarketData, len(keep)),
		columns: make(map[string][]float64, len(f.columns)),
		order:   append([]string(nil), f.order...),
	}

	for j, i := range keep {
		out.bars[j] = f.bars[i]
	}

	for _, name := range f.order {
		col := make([]float64, len(keep))
		for j, i := range keep {
			col[j] = f.columns[name][i]
		}

		out.columns[name] = col
	}

	return out
}
