package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// makeBars builds an hourly bar series from aligned close/high/low columns.
func makeBars(closes, highs, lows []float64) []types.MarketData {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.MarketData, len(closes))

	for i := range closes {
		bars[i] = types.MarketData{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Symbol: "BTC/USD",
			Open:   closes[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: 1000,
		}
	}

	return bars
}

type FactoryTestSuite struct {
	suite.Suite
	cfg config.Config
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactoryTestSuite))
}

func (suite *FactoryTestSuite) SetupTest() {
	suite.cfg = config.DefaultConfig()
}

func (suite *FactoryTestSuite) TestNewKnownStrategies() {
	bars := makeBars(
		[]float64{100, 101, 102},
		[]float64{101, 102, 103},
		[]float64{99, 100, 101},
	)

	for _, name := range Names() {
		s, err := New(name, bars, &suite.cfg, nil, nil)
		suite.NoError(err)
		suite.NotNil(s)
		suite.Equal(name, s.Name())
	}
}

func (suite *FactoryTestSuite) TestNewUnknownStrategy() {
	_, err := New("does-not-exist", nil, &suite.cfg, nil, nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedStrategy))
}

func (suite *FactoryTestSuite) TestNamesSorted() {
	names := Names()
	suite.Equal([]string{"alwaysbuy", "crossover", "pullback", "scalping"}, names)
}
