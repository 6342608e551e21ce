package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records why a simulated position was closed.
type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonSignal     ExitReason = "signal"
	ExitReasonEndOfData  ExitReason = "end_of_data"
)

// TradeRecord is one row of the append-only trade ledger: a fully realized
// round trip from entry fill to exit fill.
type TradeRecord struct {
	ID         string       `yaml:"id" json:"id" csv:"id"`
	Timestamp  time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Symbol     string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       PositionSide `yaml:"side" json:"side" csv:"side"`
	Quantity   float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	StopLoss   float64      `yaml:"stop_loss" json:"stop_loss" csv:"stop_loss"`
	TakeProfit float64      `yaml:"take_profit" json:"take_profit" csv:"take_profit"`
	// PnL is the realized profit and loss for this trade.
	// For example, entering long 4.0 units at $25,000 and exiting at $25,750
	// realizes (25750-25000)*4.0 = $3,000.
	PnL        float64    `yaml:"pnl" json:"pnl" csv:"pnl"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
}

// SumPnL adds up the realized pnl of the given trades using decimal
// arithmetic so long runs do not accumulate float drift.
func SumPnL(trades []TradeRecord) float64 {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(decimal.NewFromFloat(t.PnL))
	}

	result, _ := total.Float64()

	return result
}
