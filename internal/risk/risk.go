// Package risk implements portfolio-level trade gating and per-trade
// position sizing. The manager is deliberately fail-safe: when it cannot
// determine portfolio state it denies new risk rather than guessing.
package risk

import (
	"math"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
)

// DefaultCorrelationThreshold is the absolute Pearson correlation above
// which a candidate symbol is considered too correlated with an open one.
const DefaultCorrelationThreshold = 0.7

// correlationWindow is the number of trailing close observations used for
// the correlation screen.
const correlationWindow = 30

// Bounds for the volatility-adaptive risk fraction.
const (
	minRiskFraction = 0.01
	maxRiskFraction = 0.10
)

// AccountSource exposes the portfolio facts the risk manager gates on.
// In backtests this is the simulated ledger; live it is the brokerage.
type AccountSource interface {
	AccountEquity() (float64, error)
	OpenPositions() ([]types.Position, error)
}

// PriceHistorySource provides trailing close-price history for the
// correlation screen.
type PriceHistorySource interface {
	TrailingCloses(symbol string, window int) ([]float64, error)
}

// Manager gates new trades against portfolio limits and sizes them
// against account equity. Daily counters are process-wide; all state
// mutation is serialized.
type Manager struct {
	cfg     *config.Config
	account AccountSource
	history PriceHistorySource
	log     *logger.Logger

	mu                sync.Mutex
	dailyPnL          float64
	consecutiveLosses int
	lastResetDate     time.Time
}

// NewManager creates a risk manager. The history source may be nil, in
// which case the correlation screen passes everything through.
func NewManager(cfg *config.Config, account AccountSource, history PriceHistorySource, log *logger.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		account: account,
		history: history,
		log:     log,
	}
}

// ShouldResetDaily reports whether daily counters should reset: true when
// the calendar date of now differs from the last reset date.
func ShouldResetDaily(now, lastReset time.Time) bool {
	nowYear, nowMonth, nowDay := now.Date()
	lastYear, lastMonth, lastDay := lastReset.Date()

	return nowYear != lastYear || nowMonth != lastMonth || nowDay != lastDay
}

// CanOpenNewTrade runs the portfolio gates in order: daily reset, open
// position count, consecutive loss circuit breaker, daily loss limit. Any
// inability to determine portfolio state denies the trade.
func (m *Manager) CanOpenNewTrade(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetDailyStatsIfNeeded(now)

	positions, err := m.account.OpenPositions()
	if err != nil {
		m.warn("cannot determine open positions, denying new trade", zap.Error(err))

		return false
	}

	if len(positions) >= m.cfg.MaxOpenTrades {
		m.debug("max open trades reached", zap.Int("open", len(positions)), zap.Int("limit", m.cfg.MaxOpenTrades))

		return false
	}

	if m.consecutiveLosses >= m.cfg.ConsecutiveLossLimit {
		m.debug("consecutive loss limit reached", zap.Int("losses", m.consecutiveLosses))

		return false
	}

	equity, err := m.account.AccountEquity()
	if err != nil {
		m.warn("cannot determine account equity, denying new trade", zap.Error(err))

		return false
	}

	if m.dailyPnL <= -(equity * m.cfg.DailyLossLimitPct) {
		m.debug("daily loss limit reached", zap.Float64("daily_pnl", m.dailyPnL))

		return false
	}

	return true
}

// resetDailyStatsIfNeeded resets the daily counters when the calendar
// date has advanced. Callers must hold the mutex.
func (m *Manager) resetDailyStatsIfNeeded(now time.Time) {
	if !ShouldResetDaily(now, m.lastResetDate) {
		return
	}

	m.dailyPnL = 0
	m.consecutiveLosses = 0
	m.lastResetDate = now
}

// CalculatePositionSize returns the quantity to trade so that the cash at
// risk between entry and stop equals the effective risk fraction of
// equity. When both ATRs are supplied the fraction adapts inversely to the
// volatility ratio, clamped to [0.01, 0.10]. The notional is capped at
// max_trade_value. Invalid inputs size to zero; no trade is the safe
// default.
func (m *Manager) CalculatePositionSize(entryPrice, stopLossPrice float64, currentATR, averageATR optional.Option[float64]) float64 {
	if entryPrice <= 0 || stopLossPrice <= 0 {
		return 0
	}

	equity, err := m.account.AccountEquity()
	if err != nil || equity <= 0 {
		m.warn("cannot determine account equity, sizing to zero", zap.Error(err))

		return 0
	}

	slDistance := math.Abs(entryPrice - stopLossPrice)
	if slDistance == 0 {
		return 0
	}

	effectiveRisk := m.cfg.RiskPerTrade

	if currentATR.IsSome() && averageATR.IsSome() && averageATR.Unwrap() > 0 {
		volatilityRatio := currentATR.Unwrap() / averageATR.Unwrap()
		// A zero current ATR is a degenerate reading, not low volatility:
		// the adaptive branch is skipped and the base risk fraction applies,
		// never the clamped 10% ceiling the ratio formula would produce.
		if volatilityRatio > 0 {
			effectiveRisk = clamp(m.cfg.RiskPerTrade/volatilityRatio, minRiskFraction, maxRiskFraction)
		}
	}

	quantity := (equity * effectiveRisk) / slDistance

	if quantity*entryPrice > m.cfg.MaxTradeValue {
		quantity = m.cfg.MaxTradeValue / entryPrice
	}

	if quantity < 0 {
		return 0
	}

	return quantity
}

// CheckCorrelation screens a candidate symbol against every open symbol
// using Pearson correlation over a trailing window of closes. It returns
// false when any pair is too correlated. Missing or unusable history for
// a pair is a fail-open pass: a trade is never blocked solely because data
// is unavailable.
func (m *Manager) CheckCorrelation(symbol string, openSymbols []string, threshold float64) bool {
	if m.history == nil || len(openSymbols) == 0 {
		return true
	}

	candidate, err := m.history.TrailingCloses(symbol, correlationWindow)
	if err != nil {
		m.debug("no close history for candidate, passing correlation screen",
			zap.String("symbol", symbol), zap.Error(err))

		return true
	}

	for _, open := range openSymbols {
		if open == symbol {
			continue
		}

		closes, err := m.history.TrailingCloses(open, correlationWindow)
		if err != nil {
			m.debug("no close history for open symbol, skipping pair",
				zap.String("symbol", open), zap.Error(err))

			continue
		}

		correlation, ok := pearson(candidate, closes)
		if !ok {
			continue
		}

		if math.Abs(correlation) >= threshold {
			m.debug("candidate too correlated with open position",
				zap.String("candidate", symbol),
				zap.String("open", open),
				zap.Float64("correlation", correlation))

			return false
		}
	}

	return true
}

// RecordTradeClose accumulates daily pnl and maintains the loss streak.
// It is the sole mutator of loss-streak state and must be called exactly
// once per realized exit.
func (m *Manager) RecordTradeClose(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL += pnl

	if pnl < 0 {
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}
}

// DailyPnL returns the accumulated pnl since the last daily reset.
func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dailyPnL
}

// ConsecutiveLosses returns the current loss streak.
func (m *Manager) ConsecutiveLosses() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.consecutiveLosses
}

// pearson computes the Pearson correlation of two equal-length series.
// The second return value is false when the correlation is undefined
// (mismatched lengths, fewer than two observations, zero variance).
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}

	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var covXY, varX, varY float64

	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0, false
	}

	return covXY / math.Sqrt(varX*varY), true
}

func clamp(value, lower, upper float64) float64 {
	if value < lower {
		return lower
	}

	if value > upper {
		return upper
	}

	return value
}

func (m *Manager) warn(msg string, fields ...zap.Field) {
	if m.log != nil {
		m.log.Warn(msg, fields...)
	}
}

func (m *Manager) debug(msg string, fields ...zap.Field) {
	if m.log != nil {
		m.log.Debug(msg, fields...)
	}
}
