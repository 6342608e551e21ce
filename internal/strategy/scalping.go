package strategy

import (
	"go.uber.org/zap"

	"github.com/moznion/go-optional"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/indicator"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/sentiment"
	"github.com/meridianlab/meridian-trading/internal/types"
)

// Scalping trades stochastic extremes in the direction of the fast/slow
// EMA trend and closes positions on an opposing EMA crossover.
type Scalping struct {
	cfg   *config.Config
	log   *logger.Logger
	bars  []types.MarketData
	frame *indicator.Frame
}

// NewScalping creates a scalping strategy over the given price window.
func NewScalping(bars []types.MarketData, cfg *config.Config, _ sentiment.Provider, log *logger.Logger) Strategy {
	s := &Scalping{
		cfg:  cfg,
		log:  log,
		bars: bars,
	}

	frame, err := s.buildFrame()
	if err != nil {
		if log != nil {
			log.Warn("scalping indicator computation failed", zap.Error(err))
		}

		frame = emptyFrame()
	}

	s.frame = frame.DropUndefined()

	return s
}

// Name implements Strategy.
func (s *Scalping) Name() string {
	return StrategyScalping
}

func (s *Scalping) buildFrame() (*indicator.Frame, error) {
	closes := indicator.Closes(s.bars)
	highs := indicator.Highs(s.bars)
	lows := indicator.Lows(s.bars)

	frame := indicator.NewFrame(s.bars)

	emaFast, err := indicator.EMA(closes, s.cfg.EMAFastLen)
	if err != nil {
		return nil, err
	}

	emaSlow, err := indicator.EMA(closes, s.cfg.EMASlowLen)
	if err != nil {
		return nil, err
	}

	stoch, err := indicator.Stochastic(highs, lows, closes, s.cfg.StochK, s.cfg.StochD, s.cfg.StochSmoothK)
	if err != nil {
		return nil, err
	}

	atr, err := indicator.ATR(highs, lows, closes, s.cfg.ATRLen)
	if err != nil {
		return nil, err
	}

	for name, col := range map[string][]float64{
		indicator.ColumnEMAFast: emaFast,
		indicator.ColumnEMASlow: emaSlow,
		indicator.ColumnStochK:  stoch.PercentK,
		indicator.ColumnATR:     atr,
	} {
		if err := frame.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// GenerateSignal implements Strategy.
func (s *Scalping) GenerateSignal(position optional.Option[types.Position]) types.Signal {
	if s.frame.Len() < 2 {
		return holdSignal(s.Name(), "insufficient indicator history", s.bars)
	}

	last := s.frame.Len() - 1
	prev := last - 1

	lastBar := s.frame.Bar(last)

	emaFast := s.frame.Value(indicator.ColumnEMAFast, last)
	emaSlow := s.frame.Value(indicator.ColumnEMASlow, last)
	prevEMAFast := s.frame.Value(indicator.ColumnEMAFast, prev)
	prevEMASlow := s.frame.Value(indicator.ColumnEMASlow, prev)
	stochK := s.frame.Value(indicator.ColumnStochK, last)

	if position.IsSome() {
		bearishCross := prevEMAFast > prevEMASlow && emaFast < emaSlow
		bullishCross := prevEMAFast < prevEMASlow && emaFast > emaSlow
		side := position.Unwrap().Side

		if bearishCross && side == types.PositionSideLong {
			return newSignal(types.SignalTypeExitLong, s.Name(), "bearish ema crossover", lastBar)
		}

		if bullishCross && side == types.PositionSideShort {
			return newSignal(types.SignalTypeExitShort, s.Name(), "bullish ema crossover", lastBar)
		}

		return newSignal(types.SignalTypeHoldPosition, s.Name(), "no exit conditions met", lastBar)
	}

	if emaFast > emaSlow && stochK < s.cfg.StochOversold {
		return newSignal(types.SignalTypeBuy, s.Name(), "oversold stochastic in uptrend", lastBar)
	}

	if emaFast < emaSlow && stochK > s.cfg.StochOverbought {
		return newSignal(types.SignalTypeSell, s.Name(), "overbought stochastic in downtrend", lastBar)
	}

	return holdSignal(s.Name(), "no entry conditions met", s.bars)
}
