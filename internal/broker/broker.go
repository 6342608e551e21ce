// Package broker places live orders and reads account state from an
// exchange. It is the execution counterpart of the backtest ledger; the
// simulator never touches it.
package broker

import (
	"context"

	"github.com/meridianlab/meridian-trading/internal/types"
)

// MarketOrder describes an entry to be executed at market together
// with its protective stop and take profit levels. Prices of zero
// mean the corresponding protective order is skipped.
type MarketOrder struct {
	Symbol          string
	Side            types.PositionSide
	Quantity        float64
	StopLossPrice   float64
	TakeProfitPrice float64
}

// Broker is the live execution surface used by the trading loop.
type Broker interface {
	// AccountEquity returns the total account value in the quote currency.
	AccountEquity(ctx context.Context) (float64, error)
	// OpenPositions returns the currently held positions.
	OpenPositions(ctx context.Context) ([]types.Position, error)
	// SubmitMarketOrderWithStop executes a market entry and places the
	// protective stop and take profit orders for it.
	SubmitMarketOrderWithStop(ctx context.Context, order MarketOrder) error
	// ClosePosition flattens the given position at market.
	ClosePosition(ctx context.Context, position types.Position) error
}
