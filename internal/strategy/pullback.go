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

// Pullback trades brief retracements inside an established trend: price
// dips through the fast EMA and reclaims it while the larger trend filters
// (trend EMA, fast/slow alignment, ADX strength) stay intact. Exits are
// driven externally by stop-loss and take-profit, so an open position
// always receives HOLD.
type Pullback struct {
	cfg    *config.Config
	scorer sentiment.Provider
	log    *logger.Logger
	bars   []types.MarketData
	frame  *indicator.Frame
}

// NewPullback creates a trend-pullback strategy over the given price window.
func NewPullback(bars []types.MarketData, cfg *config.Config, scorer sentiment.Provider, log *logger.Logger) Strategy {
	s := &Pullback{
		cfg:    cfg,
		scorer: scorer,
		log:    log,
		bars:   bars,
	}

	frame, err := s.buildFrame()
	if err != nil {
		if log != nil {
			log.Warn("pullback indicator computation failed", zap.Error(err))
		}

		frame = emptyFrame()
	}

	s.frame = frame.DropUndefined()

	return s
}

// Name implements Strategy.
func (s *Pullback) Name() string {
	return StrategyPullback
}

func (s *Pullback) buildFrame() (*indicator.Frame, error) {
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

	emaTrend, err := indicator.EMA(closes, s.cfg.EMATrendLen)
	if err != nil {
		return nil, err
	}

	adx, err := indicator.ADX(highs, lows, closes, s.cfg.ADXLen)
	if err != nil {
		return nil, err
	}

	rsi, err := indicator.RSI(closes, s.cfg.RSILen)
	if err != nil {
		return nil, err
	}

	for name, col := range map[string][]float64{
		indicator.ColumnEMAFast:  emaFast,
		indicator.ColumnEMASlow:  emaSlow,
		indicator.ColumnEMATrend: emaTrend,
		indicator.ColumnADX:      adx.ADX,
		indicator.ColumnRSI:      rsi,
	} {
		if err := frame.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// GenerateSignal implements Strategy.
func (s *Pullback) GenerateSignal(position optional.Option[types.Position]) types.Signal {
	if s.frame.Len() < 2 {
		return holdSignal(s.Name(), "insufficient indicator history", s.bars)
	}

	last := s.frame.Len() - 1
	prev := last - 1

	lastBar := s.frame.Bar(last)
	prevBar := s.frame.Bar(prev)

	emaFast := s.frame.Value(indicator.ColumnEMAFast, last)
	emaSlow := s.frame.Value(indicator.ColumnEMASlow, last)
	emaTrend := s.frame.Value(indicator.ColumnEMATrend, last)
	prevEMAFast := s.frame.Value(indicator.ColumnEMAFast, prev)
	adx := s.frame.Value(indicator.ColumnADX, last)
	rsi := s.frame.Value(indicator.ColumnRSI, last)

	strongTrend := adx > s.cfg.ADXThreshold

	uptrend := lastBar.Close > emaTrend && emaFast > emaSlow
	longPullback := prevBar.Low <= prevEMAFast && lastBar.Close > emaFast

	if uptrend && strongTrend && longPullback && rsi < s.cfg.RSIOverbought && s.sentimentAllowsLong() {
		return newSignal(types.SignalTypeBuy, s.Name(), "pullback reclaim of fast ema in uptrend", lastBar)
	}

	downtrend := lastBar.Close < emaTrend && emaFast < emaSlow
	shortPullback := prevBar.High >= prevEMAFast && lastBar.Close < emaFast

	if downtrend && strongTrend && shortPullback && rsi > s.cfg.RSIOversold && s.sentimentAllowsShort() {
		return newSignal(types.SignalTypeSell, s.Name(), "pullback rejection of fast ema in downtrend", lastBar)
	}

	return holdSignal(s.Name(), "no entry conditions met", s.bars)
}

// sentimentAllowsLong applies the optional sentiment gate. An empty slug
// disables the gate.
func (s *Pullback) sentimentAllowsLong() bool {
	if s.cfg.Slug == "" || s.scorer == nil {
		return true
	}

	return s.scorer.Score(s.cfg.Slug) >= s.cfg.SentimentThreshold
}

func (s *Pullback) sentimentAllowsShort() bool {
	if s.cfg.Slug == "" || s.scorer == nil {
		return true
	}

	return s.scorer.Score(s.cfg.Slug) <= -s.cfg.SentimentThreshold
}
