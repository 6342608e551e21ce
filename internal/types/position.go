package types

import "time"

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position represents a single open holding for a symbol.
// The backtest simulator owns positions exclusively; in live mode the
// struct mirrors the brokerage's position record and is read-only to
// strategy and risk components. At most one open position per symbol.
type Position struct {
	Symbol          string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side            PositionSide `yaml:"side" json:"side" csv:"side"`
	Quantity        float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice      float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	StopLossPrice   float64      `yaml:"stop_loss_price" json:"stop_loss_price" csv:"stop_loss_price"`
	TakeProfitPrice float64      `yaml:"take_profit_price" json:"take_profit_price" csv:"take_profit_price"`
	OpenTimestamp   time.Time    `yaml:"open_timestamp" json:"open_timestamp" csv:"open_timestamp"`
}

// MarketValue returns the mark-to-market value of the position at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL returns the open profit or loss at the given price.
// Short positions gain when the price falls.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == PositionSideShort {
		return (p.EntryPrice - price) * p.Quantity
	}

	return (price - p.EntryPrice) * p.Quantity
}
