package provider

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
)

// binancePageLimit is the maximum number of klines returned per request.
const binancePageLimit = 500

// BinanceProvider fetches historical klines from the Binance public API.
// No API key is needed for historical klines.
type BinanceProvider struct {
	client *binance.Client
	log    *logger.Logger
}

func NewBinanceProvider(log *logger.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
		log:    log,
	}
}

func (p *BinanceProvider) GetBars(ctx context.Context, symbols []string, timeframe marketdata.Timeframe, start, end time.Time) (map[string][]types.MarketData, error) {
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

func (p *BinanceProvider) fetchSymbol(ctx context.Context, symbol string, timeframe marketdata.Timeframe, start, end time.Time) ([]types.MarketData, error) {
	exchangeSymbol, err := binanceSymbol(symbol)
	if err != nil {
		return nil, err
	}

	// Binance API uses milliseconds for timestamps. Pages advance past
	// the close time of the last kline to avoid duplicates.
	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.MarketData

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(exchangeSymbol).
			Interval(timeframe.BinanceInterval()).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		for _, k := range klines {
			bar, err := klineToMarketData(symbol, k)
			if err != nil {
				return nil, err
			}

			if inRange(bar.Time, start, end) {
				bars = append(bars, bar)
			}
		}

		if p.log != nil {
			p.log.Debug("fetched binance klines page",
				zap.String("symbol", symbol),
				zap.Int("count", len(klines)),
			)
		}

		// Last page: no data or a short page.
		if len(klines) < binancePageLimit {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	sortBars(bars)

	return bars, nil
}

// klineToMarketData converts a Binance kline into an OHLCV bar. The
// kline open time is used as the bar timestamp.
func klineToMarketData(symbol string, k *binance.Kline) (types.MarketData, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid open price for %s", symbol)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid high price for %s", symbol)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid low price for %s", symbol)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid close price for %s", symbol)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid volume for %s", symbol)
	}

	return types.MarketData{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// binanceSymbol converts BASE/QUOTE to the Binance spot notation.
// Binance quotes crypto pairs against USDT rather than USD.
func binanceSymbol(symbol string) (string, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return "", err
	}

	if strings.EqualFold(quote, "USD") {
		quote = "USDT"
	}

	return strings.ToUpper(base + quote), nil
}
