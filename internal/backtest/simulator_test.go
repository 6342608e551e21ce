package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/strategy"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

type SimulatorTestSuite struct {
	suite.Suite
	cfg      config.Config
	tradeLog *TradeLog
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) SetupTest() {
	suite.cfg = config.DefaultConfig()
	suite.cfg.ATRLen = 2
	suite.cfg.RiskPerTrade = 0.02
	suite.cfg.MaxTradeValue = 1000000
	suite.cfg.RRRatio = 2.0

	tradeLog, err := NewTradeLog(nil)
	suite.Require().NoError(err)
	suite.tradeLog = tradeLog
}

func (suite *SimulatorTestSuite) TearDownTest() {
	if suite.tradeLog != nil {
		suite.tradeLog.Close()
	}
}

func simBars(closes, highs, lows []float64) []types.MarketData {
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

func (suite *SimulatorTestSuite) newSimulator(strategyName string) *Simulator {
	return NewSimulator(&suite.cfg, strategyName, nil, nil, false)
}

func (suite *SimulatorTestSuite) TestStopLossExitAtStopLevel() {
	// Entry at 100 with ATR 2 puts the stop at 97. The second bar trades
	// down through it; the fill is at the stop, not the bar close.
	bars := simBars(
		[]float64{100, 98},
		[]float64{101, 100},
		[]float64{99, 96},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)
	suite.Equal(1, stats.TradeResult.NumberOfTrades)

	trades, err := suite.tradeLog.Trades()
	suite.NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonStopLoss, trades[0].ExitReason)
	suite.InDelta(97.0, trades[0].StopLoss, 1e-9)

	// Risked 2% of 10000 over a 3.0 stop distance: ~66.67 units, ~-200 pnl.
	suite.InDelta(-200.0, trades[0].PnL, 0.01)
	suite.InDelta(9800.0, stats.FinalTotal, 0.01)
}

func (suite *SimulatorTestSuite) TestTakeProfitExitAtTargetLevel() {
	// Stop 97, target 100 + 2*(100-97) = 106. Second bar tags the target.
	bars := simBars(
		[]float64{100, 105},
		[]float64{101, 107},
		[]float64{99, 100},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)

	trades, err := suite.tradeLog.Trades()
	suite.NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonTakeProfit, trades[0].ExitReason)
	suite.InDelta(400.0, trades[0].PnL, 0.01)
	suite.InDelta(10400.0, stats.FinalTotal, 0.01)
}

func (suite *SimulatorTestSuite) TestStopWinsWhenBothLevelsBreached() {
	// One wide bar crosses both stop and target; the stop fill wins.
	bars := simBars(
		[]float64{100, 100},
		[]float64{101, 107},
		[]float64{99, 96},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	_, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)

	trades, err := suite.tradeLog.Trades()
	suite.NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonStopLoss, trades[0].ExitReason)
}

func (suite *SimulatorTestSuite) TestEndOfDataClosesOpenPosition() {
	bars := simBars(
		[]float64{100, 101},
		[]float64{101, 102},
		[]float64{99, 100},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)

	trades, err := suite.tradeLog.Trades()
	suite.NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonEndOfData, trades[0].ExitReason)
	suite.Greater(trades[0].PnL, 0.0)
	suite.Equal(1, stats.TradeResult.NumberOfTrades)
	suite.Equal(1, stats.TradeResult.NumberOfWinningTrades)
}

func (suite *SimulatorTestSuite) TestSinglePositionPerSymbol() {
	// No stop/target breach across the run: the always-buy strategy must
	// still end up with exactly one round trip.
	bars := simBars(
		[]float64{100, 100.5, 101, 100.8},
		[]float64{101, 101.5, 102, 101.8},
		[]float64{99, 99.5, 100, 99.8},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)
	suite.Equal(1, stats.TradeResult.NumberOfTrades)
}

func (suite *SimulatorTestSuite) TestOverdrawnEntryIsRejectedNotClipped() {
	// A 10% effective risk over a 3.0 stop distance asks for more
	// notional than the ledger holds; the entry is rejected outright.
	suite.cfg.RiskPerTrade = 0.1

	bars := simBars(
		[]float64{100, 101},
		[]float64{101, 102},
		[]float64{99, 100},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)
	suite.Equal(0, stats.TradeResult.NumberOfTrades)
	suite.InDelta(10000.0, stats.FinalTotal, 1e-9)
}

func (suite *SimulatorTestSuite) TestFlatSeriesProducesNoTrades() {
	// Degenerate flat prices: ATR is zero, the stop distance collapses
	// and sizing refuses the trade. The run completes without error.
	n := 20
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)

	for i := 0; i < n; i++ {
		closes[i] = 100
		highs[i] = 100
		lows[i] = 100
	}

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, simBars(closes, highs, lows), suite.tradeLog)
	suite.NoError(err)
	suite.Equal(0, stats.TradeResult.NumberOfTrades)
	suite.InDelta(10000.0, stats.FinalTotal, 1e-9)
}

func (suite *SimulatorTestSuite) TestSignalDrivenExitViaCrossover() {
	suite.cfg.EMAFastLen = 2
	suite.cfg.EMASlowLen = 3

	// Bullish cross on the third bar opens the trade; the bearish cross
	// on the fifth closes it at that bar's close.
	bars := simBars(
		[]float64{100, 90, 100, 110, 90},
		[]float64{101, 91, 101, 111, 91},
		[]float64{99, 89, 99, 109, 89},
	)

	sim := suite.newSimulator(strategy.StrategyCrossover)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)

	trades, err := suite.tradeLog.Trades()
	suite.NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonSignal, trades[0].ExitReason)
	suite.InDelta(100.0, trades[0].EntryPrice, 1e-9)
	suite.Less(trades[0].PnL, 0.0)
	suite.Equal(1, stats.TradeResult.NumberOfLosingTrades)
}

func (suite *SimulatorTestSuite) TestUnusableBarsAreSkipped() {
	bars := simBars(
		[]float64{100, 0, 101},
		[]float64{101, 0, 102},
		[]float64{99, 0, 100},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)
	suite.Equal(1, stats.TradeResult.NumberOfTrades)
}

func (suite *SimulatorTestSuite) TestCloseHistoryTrailingCloses() {
	history := newCloseHistory()

	// An unknown symbol is missing data.
	_, err := history.TrailingCloses("BTC/USD", 30)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataUnavailable))

	// A single observation is a warm-up shortfall.
	history.Append("BTC/USD", 100)
	_, err = history.TrailingCloses("BTC/USD", 30)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))

	// Enough observations: the tail of the window comes back.
	history.Append("BTC/USD", 101)
	history.Append("BTC/USD", 102)

	closes, err := history.TrailingCloses("BTC/USD", 2)
	suite.NoError(err)
	suite.Equal([]float64{101, 102}, closes)
}

func (suite *SimulatorTestSuite) TestUnknownStrategyFailsRun() {
	bars := simBars([]float64{100}, []float64{101}, []float64{99})

	sim := suite.newSimulator("nope")

	_, err := sim.Run(10000, bars, suite.tradeLog)
	suite.Error(err)
}

func (suite *SimulatorTestSuite) TestStatsFields() {
	bars := simBars(
		[]float64{100, 105},
		[]float64{101, 107},
		[]float64{99, 100},
	)

	sim := suite.newSimulator(strategy.StrategyAlwaysBuy)

	stats, err := sim.Run(10000, bars, suite.tradeLog)
	suite.NoError(err)
	suite.NotEmpty(stats.ID)
	suite.Equal("BTC/USD", stats.Symbol)
	suite.Equal(strategy.StrategyAlwaysBuy, stats.Strategy)
	suite.InDelta(10000.0, stats.InitialCapital, 1e-9)
	suite.InDelta(4.0, stats.TotalReturnPct, 0.01)
	suite.InDelta(400.0, stats.RealizedPnL, 0.01)
	suite.InDelta(1.0, stats.TradeResult.WinRate, 1e-9)
}
