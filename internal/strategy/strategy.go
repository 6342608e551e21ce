// Package strategy contains the signal-generating trading strategies. A
// strategy is constructed over a causal price window, computes its
// indicator frame up front and answers GenerateSignal for the latest bar.
// Malformed or insufficient data always degrades to HOLD, never to an
// error surfaced to the caller.
package strategy

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/indicator"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/sentiment"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// Strategy produces a trade signal from the price window it was constructed
// over, given the caller's current position if any.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// GenerateSignal evaluates the latest bar of the window. The position,
	// when present, is read-only context owned by the caller.
	GenerateSignal(position optional.Option[types.Position]) types.Signal
}

// Constructor builds a strategy over a price window.
type Constructor func(bars []types.MarketData, cfg *config.Config, scorer sentiment.Provider, log *logger.Logger) Strategy

var registry = map[string]Constructor{
	StrategyPullback:  NewPullback,
	StrategyScalping:  NewScalping,
	StrategyCrossover: NewCrossover,
	StrategyAlwaysBuy: NewAlwaysBuy,
}

// Registered strategy names.
const (
	StrategyPullback  = "pullback"
	StrategyScalping  = "scalping"
	StrategyCrossover = "crossover"
	StrategyAlwaysBuy = "alwaysbuy"
)

// New creates the named strategy over the given price window.
func New(name string, bars []types.MarketData, cfg *config.Config, scorer sentiment.Provider, log *logger.Logger) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy: %s", name)
	}

	return ctor(bars, cfg, scorer, log), nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// newSignal builds a signal stamped with the given bar's time and symbol.
func newSignal(signalType types.SignalType, name, reason string, bar types.MarketData) types.Signal {
	return types.Signal{
		Time:   bar.Time,
		Type:   signalType,
		Name:   name,
		Reason: reason,
		Symbol: bar.Symbol,
	}
}

// holdSignal builds a HOLD stamped with the last bar of the window, or a
// zero-valued one when the window is empty.
func holdSignal(name, reason string, bars []types.MarketData) types.Signal {
	var (
		barTime time.Time
		symbol  string
	)

	if len(bars) > 0 {
		last := bars[len(bars)-1]
		barTime = last.Time
		symbol = last.Symbol
	}

	return types.Signal{
		Time:   barTime,
		Type:   types.SignalTypeHold,
		Name:   name,
		Reason: reason,
		Symbol: symbol,
	}
}

// emptyFrame is what strategies fall back to when indicator computation
// fails; every signal path treats it as "cannot evaluate".
func emptyFrame() *indicator.Frame {
	return indicator.NewFrame(nil)
}
