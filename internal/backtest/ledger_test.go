package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	ledger, err := NewLedger(10000)
	suite.Require().NoError(err)
	suite.ledger = ledger
}

func longBTC(quantity, entry float64) types.Position {
	return types.Position{
		Symbol:        "BTC/USD",
		Side:          types.PositionSideLong,
		Quantity:      quantity,
		EntryPrice:    entry,
		OpenTimestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *LedgerTestSuite) TestNewLedgerRejectsNonPositiveCapital() {
	_, err := NewLedger(0)
	suite.Error(err)

	_, err = NewLedger(-100)
	suite.Error(err)
}

func (suite *LedgerTestSuite) TestOpenPositionDebitsCash() {
	err := suite.ledger.OpenPosition(longBTC(2, 1000))
	suite.NoError(err)
	suite.InDelta(8000.0, suite.ledger.Cash(), 1e-9)
	suite.True(suite.ledger.Position("BTC/USD").IsSome())
}

func (suite *LedgerTestSuite) TestOpenPositionRejectsOverdraw() {
	err := suite.ledger.OpenPosition(longBTC(2, 6000))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientCash))

	// Rejected, not clipped: nothing changed.
	suite.InDelta(10000.0, suite.ledger.Cash(), 1e-9)
	suite.True(suite.ledger.Position("BTC/USD").IsNone())
}

func (suite *LedgerTestSuite) TestOpenPositionRejectsDuplicate() {
	suite.NoError(suite.ledger.OpenPosition(longBTC(1, 1000)))

	err := suite.ledger.OpenPosition(longBTC(1, 1000))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulationInvariant))
}

func (suite *LedgerTestSuite) TestOpenPositionRejectsInvalidQuantity() {
	err := suite.ledger.OpenPosition(longBTC(0, 1000))
	suite.Error(err)

	err = suite.ledger.OpenPosition(longBTC(-1, 1000))
	suite.Error(err)
}

func (suite *LedgerTestSuite) TestClosePositionRealizesPnL() {
	suite.NoError(suite.ledger.OpenPosition(longBTC(2, 1000)))

	pnl, err := suite.ledger.ClosePosition("BTC/USD", 1100)
	suite.NoError(err)
	suite.InDelta(200.0, pnl, 1e-9)
	suite.InDelta(10200.0, suite.ledger.Cash(), 1e-9)
	suite.InDelta(200.0, suite.ledger.RealizedPnL(), 1e-9)
	suite.True(suite.ledger.Position("BTC/USD").IsNone())
}

func (suite *LedgerTestSuite) TestClosePositionUnknownSymbol() {
	_, err := suite.ledger.ClosePosition("ETH/USD", 100)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}

func (suite *LedgerTestSuite) TestTotalMarksToMarket() {
	suite.NoError(suite.ledger.OpenPosition(longBTC(2, 1000)))

	// No new mark yet: valued at entry.
	suite.InDelta(10000.0, suite.ledger.Total(), 1e-9)

	suite.ledger.Mark("BTC/USD", 1200)
	suite.InDelta(10400.0, suite.ledger.Total(), 1e-9)

	suite.ledger.Mark("BTC/USD", 900)
	suite.InDelta(9800.0, suite.ledger.Total(), 1e-9)
}

func (suite *LedgerTestSuite) TestShortPositionGainsWhenPriceFalls() {
	short := types.Position{
		Symbol:     "BTC/USD",
		Side:       types.PositionSideShort,
		Quantity:   2,
		EntryPrice: 1000,
	}

	suite.NoError(suite.ledger.OpenPosition(short))

	suite.ledger.Mark("BTC/USD", 900)
	suite.InDelta(10200.0, suite.ledger.Total(), 1e-9)

	pnl, err := suite.ledger.ClosePosition("BTC/USD", 900)
	suite.NoError(err)
	suite.InDelta(200.0, pnl, 1e-9)
	suite.InDelta(10200.0, suite.ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestAccountSourceView() {
	suite.NoError(suite.ledger.OpenPosition(longBTC(1, 1000)))

	equity, err := suite.ledger.AccountEquity()
	suite.NoError(err)
	suite.InDelta(suite.ledger.Total(), equity, 1e-9)

	positions, err := suite.ledger.OpenPositions()
	suite.NoError(err)
	suite.Len(positions, 1)
	suite.Equal("BTC/USD", positions[0].Symbol)
}
