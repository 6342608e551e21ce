// Package provider fetches historical OHLCV bars from external market
// data sources. All providers speak the same symbol format, BASE/QUOTE
// (for example "BTC/USD"), and translate it to whatever notation their
// backing service uses. Returned series are sorted by time ascending.
package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
	ProviderCSV     ProviderType = "csv"
)

// Provider retrieves historical bars for a set of symbols.
type Provider interface {
	// GetBars returns one series per requested symbol, keyed by the
	// BASE/QUOTE symbol. Bars are ordered by time ascending and limited
	// to the [start, end] range. Cancel the context to abort the fetch.
	GetBars(ctx context.Context, symbols []string, timeframe marketdata.Timeframe, start, end time.Time) (map[string][]types.MarketData, error)
}

// Config carries the provider-specific settings used by the factory.
type Config struct {
	// PolygonAPIKey is required for the polygon provider.
	PolygonAPIKey string
	// DataDir is the directory holding per-symbol CSV files for the csv provider.
	DataDir string
	// Logger is optional; providers stay silent without one.
	Logger *logger.Logger
}

// NewProvider creates a market data provider based on the provider type.
func NewProvider(providerType ProviderType, cfg Config) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(cfg.Logger), nil
	case ProviderPolygon:
		return NewPolygonProvider(cfg.PolygonAPIKey, cfg.Logger)
	case ProviderCSV:
		return NewCSVProvider(cfg.DataDir, cfg.Logger)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// splitSymbol breaks a BASE/QUOTE symbol into its parts.
func splitSymbol(symbol string) (base, quote string, err error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "symbol must be in BASE/QUOTE format: %q", symbol)
	}

	return base, quote, nil
}

// sortBars orders a series by time ascending in place.
func sortBars(bars []types.MarketData) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}

// inRange reports whether t falls within [start, end].
func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
