package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ATRTestSuite struct {
	suite.Suite
}

func TestATRSuite(t *testing.T) {
	suite.Run(t, new(ATRTestSuite))
}

func (suite *ATRTestSuite) TestFirstBarTrueRange() {
	high := []float64{10, 12}
	low := []float64{8, 9}
	close := []float64{9, 11}

	tr := TrueRange(high, low, close)
	suite.InDelta(2.0, tr[0], 1e-9)
	// max(12-9, |12-9|, |9-9|) = 3
	suite.InDelta(3.0, tr[1], 1e-9)
}

func (suite *ATRTestSuite) TestGapTrueRange() {
	// A gap down makes |low - prev_close| the dominant term.
	high := []float64{100, 90}
	low := []float64{98, 88}
	close := []float64{99, 89}

	tr := TrueRange(high, low, close)
	suite.InDelta(11.0, tr[1], 1e-9)
}

func (suite *ATRTestSuite) TestATREqualsTrueRangeWithLengthOne() {
	high := []float64{10, 12, 11}
	low := []float64{8, 9, 10}
	close := []float64{9, 11, 10.5}

	atr, err := ATR(high, low, close, 1)
	suite.NoError(err)

	tr := TrueRange(high, low, close)
	for i := range tr {
		suite.InDelta(tr[i], atr[i], 1e-9)
	}
}

func (suite *ATRTestSuite) TestFlatSeriesATRIsZero() {
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)

	for i := 0; i < n; i++ {
		high[i] = 100
		low[i] = 100
		close[i] = 100
	}

	atr, err := ATR(high, low, close, 14)
	suite.NoError(err)

	for i := range atr {
		suite.InDelta(0.0, atr[i], 1e-12)
	}
}

func (suite *ATRTestSuite) TestMismatchedSeriesLengths() {
	_, err := ATR([]float64{1, 2}, []float64{1}, []float64{1, 2}, 14)
	suite.Error(err)
}
