package backtest

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// Ledger tracks the simulated portfolio: cash, open positions and their
// latest marks. Cash never goes negative; an entry that would overdraw is
// rejected outright, not clipped. The ledger doubles as the risk
// manager's account source during backtests.
type Ledger struct {
	cash      float64
	positions map[string]types.Position
	marks     map[string]float64
	realized  decimal.Decimal
}

// NewLedger creates a ledger holding the given starting cash.
func NewLedger(initialCapital float64) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %f", initialCapital)
	}

	return &Ledger{
		cash:      initialCapital,
		positions: make(map[string]types.Position),
		marks:     make(map[string]float64),
	}, nil
}

// Cash returns the free cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Mark records the latest observed price for a symbol. Mark-to-market
// valuations use the most recent mark.
func (l *Ledger) Mark(symbol string, price float64) {
	l.marks[symbol] = price
}

// Position returns the open position for a symbol, if any.
func (l *Ledger) Position(symbol string) optional.Option[types.Position] {
	position, ok := l.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(position)
}

// OpenPositions implements risk.AccountSource.
func (l *Ledger) OpenPositions() ([]types.Position, error) {
	positions := make([]types.Position, 0, len(l.positions))
	for _, position := range l.positions {
		positions = append(positions, position)
	}

	return positions, nil
}

// AccountEquity implements risk.AccountSource: cash plus the
// mark-to-market value of all open positions.
func (l *Ledger) AccountEquity() (float64, error) {
	return l.Total(), nil
}

// PositionValue returns the mark-to-market value of all open positions.
func (l *Ledger) PositionValue() float64 {
	value := 0.0

	for symbol, position := range l.positions {
		mark, ok := l.marks[symbol]
		if !ok {
			mark = position.EntryPrice
		}

		value += positionValueAt(position, mark)
	}

	return value
}

// Total returns cash plus position value. Recomputed every bar by the
// simulator.
func (l *Ledger) Total() float64 {
	return l.cash + l.PositionValue()
}

// RealizedPnL returns the sum of all realized trade pnl.
func (l *Ledger) RealizedPnL() float64 {
	pnl, _ := l.realized.Float64()

	return pnl
}

// OpenPosition debits cash by the entry notional and stores the position.
// Rejects when a position is already open for the symbol or when the
// notional exceeds available cash.
func (l *Ledger) OpenPosition(position types.Position) error {
	if _, exists := l.positions[position.Symbol]; exists {
		return errors.Newf(errors.ErrCodeSimulationInvariant, "position already open for %s", position.Symbol)
	}

	if position.Quantity <= 0 || position.EntryPrice <= 0 {
		return errors.Newf(errors.ErrCodeInvalidQuantity,
			"invalid position: quantity=%f entry=%f", position.Quantity, position.EntryPrice)
	}

	notional := position.Quantity * position.EntryPrice
	if notional > l.cash {
		return errors.Newf(errors.ErrCodeInsufficientCash,
			"entry notional %.2f exceeds cash %.2f", notional, l.cash)
	}

	l.cash -= notional
	l.positions[position.Symbol] = position
	l.marks[position.Symbol] = position.EntryPrice

	return nil
}

// ClosePosition realizes the position at the given exit price, credits
// cash and returns the realized pnl.
func (l *Ledger) ClosePosition(symbol string, exitPrice float64) (float64, error) {
	position, ok := l.positions[symbol]
	if !ok {
		return 0, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
	}

	pnl := position.UnrealizedPnL(exitPrice)

	l.cash += positionValueAt(position, exitPrice)
	l.realized = l.realized.Add(decimal.NewFromFloat(pnl))
	delete(l.positions, symbol)

	return pnl, nil
}

// positionValueAt values a position at a price. Long value is quantity
// times price; short value is the entry notional plus the open pnl.
func positionValueAt(position types.Position, price float64) float64 {
	if position.Side == types.PositionSideShort {
		return position.Quantity*position.EntryPrice + position.UnrealizedPnL(price)
	}

	return position.MarketValue(price)
}
