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

// Crossover is the simplest strategy: long when the fast EMA crosses above
// the slow EMA, flat when it crosses back below. Used as the backtest
// reference case.
type Crossover struct {
	cfg   *config.Config
	log   *logger.Logger
	bars  []types.MarketData
	frame *indicator.Frame
}

// NewCrossover creates a moving-average crossover strategy over the given
// price window.
func NewCrossover(bars []types.MarketData, cfg *config.Config, _ sentiment.Provider, log *logger.Logger) Strategy {
	s := &Crossover{
		cfg:  cfg,
		log:  log,
		bars: bars,
	}

	frame, err := s.buildFrame()
	if err != nil {
		if log != nil {
			log.Warn("crossover indicator computation failed", zap.Error(err))
		}

		frame = emptyFrame()
	}

	s.frame = frame.DropUndefined()

	return s
}

// Name implements Strategy.
func (s *Crossover) Name() string {
	return StrategyCrossover
}

func (s *Crossover) buildFrame() (*indicator.Frame, error) {
	closes := indicator.Closes(s.bars)
	frame := indicator.NewFrame(s.bars)

	emaFast, err := indicator.EMA(closes, s.cfg.EMAFastLen)
	if err != nil {
		return nil, err
	}

	emaSlow, err := indicator.EMA(closes, s.cfg.EMASlowLen)
	if err != nil {
		return nil, err
	}

	if err := frame.SetColumn(indicator.ColumnEMAFast, emaFast); err != nil {
		return nil, err
	}

	if err := frame.SetColumn(indicator.ColumnEMASlow, emaSlow); err != nil {
		return nil, err
	}

	return frame, nil
}

// GenerateSignal implements Strategy.
func (s *Crossover) GenerateSignal(position optional.Option[types.Position]) types.Signal {
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

	bullishCross := prevEMAFast <= prevEMASlow && emaFast > emaSlow
	bearishCross := prevEMAFast >= prevEMASlow && emaFast < emaSlow

	if position.IsSome() {
		if bearishCross {
			return newSignal(types.SignalTypeExitLong, s.Name(), "bearish ema crossover", lastBar)
		}

		return newSignal(types.SignalTypeHoldPosition, s.Name(), "holding through trend", lastBar)
	}

	if bullishCross {
		return newSignal(types.SignalTypeBuy, s.Name(), "bullish ema crossover", lastBar)
	}

	return holdSignal(s.Name(), "no crossover", s.bars)
}
