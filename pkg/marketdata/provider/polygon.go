package provider

import (
	"context"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
)

// polygonPageLimit is the maximum number of aggregates per page.
const polygonPageLimit = 50000

// PolygonProvider fetches historical aggregates from the polygon.io REST API.
type PolygonProvider struct {
	client *polygon.Client
	log    *logger.Logger
}

func NewPolygonProvider(apiKey string, log *logger.Logger) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an API key")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
		log:    log,
	}, nil
}

func (p *PolygonProvider) GetBars(ctx context.Context, symbols []string, timeframe marketdata.Timeframe, start, end time.Time) (map[string][]types.MarketData, error) {
	series := make(map[string][]types.MarketData, len(symbols))

	for _, symbol := range symbols {
		bars, err := p.fetchSymbol(ctx, symbol, timeframe, start, end)
		if err != nil {
			return nil, err
		}

		series[symbol] = bars
	}

	return series, nil
}

func (p *PolygonProvider) fetchSymbol(ctx context.Context, symbol string, timeframe marketdata.Timeframe, start, end time.Time) ([]types.MarketData, error) {
	ticker, err := polygonTicker(symbol)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: timeframe.Multiplier(),
		Timespan:   timeframe.PolygonTimespan(),
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonPageLimit)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.MarketData

	for iter.Next() {
		agg := iter.Item()

		bar := types.MarketData{
			Time:   time.Time(agg.Timestamp).UTC(),
			Symbol: symbol,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if inRange(bar.Time, start, end) {
			bars = append(bars, bar)
		}
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to iterate polygon aggregates for %s", symbol)
	}

	if p.log != nil {
		p.log.Debug("fetched polygon aggregates",
			zap.String("symbol", symbol),
			zap.Int("count", len(bars)),
		)
	}

	sortBars(bars)

	return bars, nil
}

// polygonTicker converts BASE/QUOTE to the polygon crypto ticker notation,
// for example BTC/USD becomes X:BTCUSD.
func polygonTicker(symbol string) (string, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return "", err
	}

	return "X:" + strings.ToUpper(base+quote), nil
}
