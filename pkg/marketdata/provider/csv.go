package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
)

// CSVProvider reads bars from per-symbol CSV files in a local directory.
// The file for BASE/QUOTE is named BASE-QUOTE.csv and carries the
// standard OHLCV columns with RFC3339 timestamps. The timeframe is
// whatever the file holds; it is not resampled.
type CSVProvider struct {
	dir string
	log *logger.Logger
}

func NewCSVProvider(dir string, log *logger.Logger) (*CSVProvider, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "csv provider requires a data directory")
	}

	return &CSVProvider{
		dir: dir,
		log: log,
	}, nil
}

func (p *CSVProvider) GetBars(ctx context.Context, symbols []string, _ marketdata.Timeframe, start, end time.Time) (map[string][]types.MarketData, error) {
	series := make(map[string][]types.MarketData, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "csv load canceled", err)
		}

		bars, err := p.loadSymbol(symbol, start, end)
		if err != nil {
			return nil, err
		}

		series[symbol] = bars
	}

	return series, nil
}

func (p *CSVProvider) loadSymbol(symbol string, start, end time.Time) ([]types.MarketData, error) {
	path, err := SymbolFilePath(p.dir, symbol)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "no csv data for symbol %s", symbol)
	}
	defer file.Close()

	var rows []types.MarketData
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse csv data for %s", symbol)
	}

	bars := make([]types.MarketData, 0, len(rows))

	for _, row := range rows {
		if !inRange(row.Time, start, end) {
			continue
		}

		if row.Symbol == "" {
			row.Symbol = symbol
		}

		bars = append(bars, row)
	}

	sortBars(bars)

	if p.log != nil {
		p.log.Debug("loaded csv bars",
			zap.String("symbol", symbol),
			zap.String("path", path),
			zap.Int("count", len(bars)),
		)
	}

	return bars, nil
}

// SymbolFilePath returns the CSV file path for a BASE/QUOTE symbol
// under the given data directory. The slash is replaced with a dash to
// keep the file name filesystem safe.
func SymbolFilePath(dir, symbol string) (string, error) {
	if _, _, err := splitSymbol(symbol); err != nil {
		return "", err
	}

	return filepath.Join(dir, strings.ReplaceAll(symbol, "/", "-")+".csv"), nil
}
