package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/sentiment"
	"github.com/meridianlab/meridian-trading/internal/types"
)

// AlwaysBuy signals BUY on every bar while flat. Exists for test harnesses
// and simulator plumbing checks; never use it with real money.
type AlwaysBuy struct {
	bars []types.MarketData
}

// NewAlwaysBuy creates an always-buy strategy over the given price window.
func NewAlwaysBuy(bars []types.MarketData, _ *config.Config, _ sentiment.Provider, _ *logger.Logger) Strategy {
	return &AlwaysBuy{bars: bars}
}

// Name implements Strategy.
func (s *AlwaysBuy) Name() string {
	return StrategyAlwaysBuy
}

// GenerateSignal implements Strategy.
func (s *AlwaysBuy) GenerateSignal(position optional.Option[types.Position]) types.Signal {
	if len(s.bars) == 0 {
		return holdSignal(s.Name(), "no data", s.bars)
	}

	lastBar := s.bars[len(s.bars)-1]

	if position.IsSome() {
		return newSignal(types.SignalTypeHoldPosition, s.Name(), "already positioned", lastBar)
	}

	return newSignal(types.SignalTypeBuy, s.Name(), "unconditional entry", lastBar)
}
