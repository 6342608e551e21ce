package marketdata

import (
	"github.com/polygon-io/client-go/rest/models"

	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// Timeframe identifies the bar interval of a market data series.
// The string form matches the interval notation used by the Binance
// klines API, so BinanceInterval is the identity for valid values.
type Timeframe string

const (
	TimeframeOneMinute      Timeframe = "1m"
	TimeframeThreeMinutes   Timeframe = "3m"
	TimeframeFiveMinutes    Timeframe = "5m"
	TimeframeFifteenMinutes Timeframe = "15m"
	TimeframeThirtyMinutes  Timeframe = "30m"
	TimeframeOneHour        Timeframe = "1h"
	TimeframeTwoHours       Timeframe = "2h"
	TimeframeFourHours      Timeframe = "4h"
	TimeframeSixHours       Timeframe = "6h"
	TimeframeEightHours     Timeframe = "8h"
	TimeframeTwelveHours    Timeframe = "12h"
	TimeframeOneDay         Timeframe = "1d"
	TimeframeThreeDays      Timeframe = "3d"
	TimeframeOneWeek        Timeframe = "1w"
	TimeframeOneMonth       Timeframe = "1M"
)

var validTimeframes = map[Timeframe]bool{
	TimeframeOneMinute:      true,
	TimeframeThreeMinutes:   true,
	TimeframeFiveMinutes:    true,
	TimeframeFifteenMinutes: true,
	TimeframeThirtyMinutes:  true,
	TimeframeOneHour:        true,
	TimeframeTwoHours:       true,
	TimeframeFourHours:      true,
	TimeframeSixHours:       true,
	TimeframeEightHours:     true,
	TimeframeTwelveHours:    true,
	TimeframeOneDay:         true,
	TimeframeThreeDays:      true,
	TimeframeOneWeek:        true,
	TimeframeOneMonth:       true,
}

// ParseTimeframe validates the given interval string and returns it as a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	t := Timeframe(s)
	if !validTimeframes[t] {
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe: %s", s)
	}

	return t, nil
}

// Multiplier returns the numeric part of the timeframe for providers
// that take a (multiplier, timespan) pair.
func (t Timeframe) Multiplier() int {
	switch t {
	case TimeframeThreeMinutes, TimeframeThreeDays:
		return 3
	case TimeframeFiveMinutes:
		return 5
	case TimeframeFifteenMinutes:
		return 15
	case TimeframeThirtyMinutes:
		return 30
	case TimeframeTwoHours:
		return 2
	case TimeframeFourHours:
		return 4
	case TimeframeSixHours:
		return 6
	case TimeframeEightHours:
		return 8
	case TimeframeTwelveHours:
		return 12
	default:
		return 1
	}
}

// PolygonTimespan maps the timeframe onto the polygon aggregate timespan unit.
func (t Timeframe) PolygonTimespan() models.Timespan {
	switch t {
	case TimeframeOneMinute, TimeframeThreeMinutes, TimeframeFiveMinutes, TimeframeFifteenMinutes, TimeframeThirtyMinutes:
		return models.Minute
	case TimeframeOneHour, TimeframeTwoHours, TimeframeFourHours, TimeframeSixHours, TimeframeEightHours, TimeframeTwelveHours:
		return models.Hour
	case TimeframeOneDay, TimeframeThreeDays:
		return models.Day
	case TimeframeOneWeek:
		return models.Week
	case TimeframeOneMonth:
		return models.Month
	default:
		return models.Day
	}
}

// BinanceInterval returns the interval string expected by the Binance klines API.
func (t Timeframe) BinanceInterval() string {
	return string(t)
}
