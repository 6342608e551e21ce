package types

import "time"

// MarketData represents a single OHLCV bar for a symbol.
// Bars are immutable once retrieved; a series of bars is ordered by Time
// and every derived value at index i may depend on indices <= i only.
type MarketData struct {
	Time   time.Time `csv:"time"`
	Symbol string    `csv:"symbol"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}
