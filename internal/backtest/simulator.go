// Package backtest replays trading strategies bar-by-bar over historical
// data through a simulated portfolio ledger. The replay is single-threaded
// and strictly causal: the decision at bar i sees only bars <= i and the
// ledger state after bar i-1.
package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/indicator"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/risk"
	"github.com/meridianlab/meridian-trading/internal/sentiment"
	"github.com/meridianlab/meridian-trading/internal/strategy"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/internal/utils"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// stopATRMultiple is the stop distance below entry, in ATR units.
const stopATRMultiple = 1.5

// quantityPrecision is the decimal precision order quantities are rounded
// down to before opening a position.
const quantityPrecision = 8

// Simulator drives a strategy and the risk manager over a historical bar
// series, maintaining a cash/position ledger and an append-only trade log.
type Simulator struct {
	cfg          *config.Config
	strategyName string
	scorer       sentiment.Provider
	log          *logger.Logger
	showProgress bool
}

// NewSimulator creates a backtest simulator for the named strategy.
func NewSimulator(cfg *config.Config, strategyName string, scorer sentiment.Provider, log *logger.Logger, showProgress bool) *Simulator {
	return &Simulator{
		cfg:          cfg,
		strategyName: strategyName,
		scorer:       scorer,
		log:          log,
		showProgress: showProgress,
	}
}

// Run replays the bar series against a fresh ledger and records every
// realized trade in tradeLog. Unusable bars are skipped with no state
// change; a position still open after the last bar is closed at that
// bar's close.
func (s *Simulator) Run(initialCapital float64, bars []types.MarketData, tradeLog *TradeLog) (types.TradeStats, error) {
	ledger, err := NewLedger(initialCapital)
	if err != nil {
		return types.TradeStats{}, err
	}

	// Validate the strategy name up front so a typo fails the run
	// instead of every bar.
	if _, err := strategy.New(s.strategyName, nil, s.cfg, s.scorer, s.log); err != nil {
		return types.TradeStats{}, err
	}

	history := newCloseHistory()
	riskManager := risk.NewManager(s.cfg, ledger, history, s.log)
	runID := uuid.New().String()

	var bar *progressbar.ProgressBar
	if s.showProgress {
		bar = progressbar.Default(int64(len(bars)), "backtest")
	}

	var lastBar types.MarketData

	for i := range bars {
		if bar != nil {
			_ = bar.Add(1)
		}

		current := bars[i]
		if current.Close <= 0 || current.Time.IsZero() {
			continue
		}

		lastBar = current
		history.Append(current.Symbol, current.Close)
		ledger.Mark(current.Symbol, current.Close)

		window := bars[:i+1]

		if position := ledger.Position(current.Symbol); position.IsSome() {
			if err := s.managePosition(ledger, riskManager, tradeLog, runID, position.Unwrap(), current, window); err != nil {
				return types.TradeStats{}, err
			}
		} else if err := s.evaluateEntry(ledger, riskManager, current, window); err != nil {
			return types.TradeStats{}, err
		}

		if ledger.Cash() < 0 {
			return types.TradeStats{}, errors.Newf(errors.ErrCodeSimulationInvariant,
				"cash went negative at %s: %.2f", current.Time, ledger.Cash())
		}
	}

	// Close any position left open when the data ends.
	if position := ledger.Position(lastBar.Symbol); position.IsSome() {
		if err := s.closeAndRecord(ledger, riskManager, tradeLog, runID,
			position.Unwrap(), lastBar.Close, types.ExitReasonEndOfData, lastBar.Time); err != nil {
			return types.TradeStats{}, err
		}
	}

	return s.buildStats(runID, initialCapital, ledger, tradeLog, lastBar)
}

// managePosition marks an open position to market and realizes stop-loss,
// take-profit or signal-driven exits. The stop is checked before the
// target; a breach fills at the breached level, not the bar close.
func (s *Simulator) managePosition(ledger *Ledger, riskManager *risk.Manager, tradeLog *TradeLog,
	runID string, position types.Position, current types.MarketData, window []types.MarketData) error {
	exitPrice, exitReason, breached := checkStopTarget(position, current)
	if breached {
		return s.closeAndRecord(ledger, riskManager, tradeLog, runID, position, exitPrice, exitReason, current.Time)
	}

	strat, err := strategy.New(s.strategyName, window, s.cfg, s.scorer, s.log)
	if err != nil {
		return err
	}

	signal := strat.GenerateSignal(optional.Some(position))

	exitsLong := signal.Type == types.SignalTypeExitLong && position.Side == types.PositionSideLong
	exitsShort := signal.Type == types.SignalTypeExitShort && position.Side == types.PositionSideShort

	if exitsLong || exitsShort {
		return s.closeAndRecord(ledger, riskManager, tradeLog, runID, position, current.Close, types.ExitReasonSignal, current.Time)
	}

	return nil
}

// checkStopTarget tests a bar against the position's stop and target
// levels. The stop wins when both are breached within the same bar.
func checkStopTarget(position types.Position, current types.MarketData) (float64, types.ExitReason, bool) {
	if position.Side == types.PositionSideShort {
		if current.High >= position.StopLossPrice {
			return position.StopLossPrice, types.ExitReasonStopLoss, true
		}

		if current.Low <= position.TakeProfitPrice {
			return position.TakeProfitPrice, types.ExitReasonTakeProfit, true
		}

		return 0, "", false
	}

	if current.Low <= position.StopLossPrice {
		return position.StopLossPrice, types.ExitReasonStopLoss, true
	}

	if current.High >= position.TakeProfitPrice {
		return position.TakeProfitPrice, types.ExitReasonTakeProfit, true
	}

	return 0, "", false
}

// evaluateEntry runs the strategy on the causal window and opens a long
// position when a BUY survives the risk gates. Entries fill at the bar
// close; the simulator trades long only.
func (s *Simulator) evaluateEntry(ledger *Ledger, riskManager *risk.Manager, current types.MarketData, window []types.MarketData) error {
	strat, err := strategy.New(s.strategyName, window, s.cfg, s.scorer, s.log)
	if err != nil {
		return err
	}

	signal := strat.GenerateSignal(optional.None[types.Position]())
	if signal.Type != types.SignalTypeBuy {
		// The replayed portfolio is long only; a SELL while flat is a no-op.
		if signal.Type == types.SignalTypeSell {
			s.debug("ignoring short entry signal", zap.String("symbol", current.Symbol), zap.Time("time", current.Time))
		}

		return nil
	}

	currentATR, averageATR, ok := s.atrSnapshot(window)
	if !ok {
		return nil
	}

	entry := current.Close
	stop := entry - stopATRMultiple*currentATR
	target := entry + s.cfg.RRRatio*(entry-stop)

	if stop <= 0 {
		s.debug("stop at or below zero, skipping entry", zap.Float64("entry", entry), zap.Float64("atr", currentATR))

		return nil
	}

	if !riskManager.CanOpenNewTrade(current.Time) {
		return nil
	}

	openSymbols, err := openSymbolList(ledger)
	if err != nil {
		return nil
	}

	if !riskManager.CheckCorrelation(current.Symbol, openSymbols, risk.DefaultCorrelationThreshold) {
		return nil
	}

	quantity := riskManager.CalculatePositionSize(entry, stop,
		optional.Some(currentATR), optional.Some(averageATR))
	quantity = utils.RoundToDecimalPrecision(quantity, quantityPrecision)

	if quantity <= 0 {
		return nil
	}

	if quantity > utils.CalculateMaxQuantity(ledger.Cash(), entry) {
		s.debug("entry notional exceeds cash, rejecting",
			zap.Float64("notional", quantity*entry), zap.Float64("cash", ledger.Cash()))

		return nil
	}

	position := types.Position{
		Symbol:          current.Symbol,
		Side:            types.PositionSideLong,
		Quantity:        quantity,
		EntryPrice:      entry,
		StopLossPrice:   stop,
		TakeProfitPrice: target,
		OpenTimestamp:   current.Time,
	}

	if err := ledger.OpenPosition(position); err != nil {
		// An overdraw here means sizing and the cash check disagree.
		return err
	}

	s.debug("opened position",
		zap.String("symbol", position.Symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("entry", entry),
		zap.Float64("stop", stop),
		zap.Float64("target", target))

	return nil
}

// atrSnapshot computes the latest ATR and its average over the window.
func (s *Simulator) atrSnapshot(window []types.MarketData) (float64, float64, bool) {
	atr, err := indicator.ATR(indicator.Highs(window), indicator.Lows(window), indicator.Closes(window), s.cfg.ATRLen)
	if err != nil || len(atr) == 0 {
		return 0, 0, false
	}

	current := atr[len(atr)-1]
	if math.IsNaN(current) {
		return 0, 0, false
	}

	sum := 0.0
	count := 0

	for _, v := range atr {
		if math.IsNaN(v) {
			continue
		}

		sum += v
		count++
	}

	if count == 0 {
		return 0, 0, false
	}

	return current, sum / float64(count), true
}

func (s *Simulator) closeAndRecord(ledger *Ledger, riskManager *risk.Manager, tradeLog *TradeLog,
	runID string, position types.Position, exitPrice float64, reason types.ExitReason, at time.Time) error {
	pnl, err := ledger.ClosePosition(position.Symbol, exitPrice)
	if err != nil {
		return err
	}

	riskManager.RecordTradeClose(pnl)

	record := types.TradeRecord{
		ID:         uuid.New().String(),
		Timestamp:  at,
		Symbol:     position.Symbol,
		Side:       position.Side,
		Quantity:   position.Quantity,
		EntryPrice: position.EntryPrice,
		StopLoss:   position.StopLossPrice,
		TakeProfit: position.TakeProfitPrice,
		PnL:        pnl,
		ExitReason: reason,
	}

	if err := tradeLog.Append(record); err != nil {
		return err
	}

	s.debug("closed position",
		zap.String("symbol", position.Symbol),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl),
		zap.String("reason", string(reason)))

	return nil
}

func (s *Simulator) buildStats(runID string, initialCapital float64, ledger *Ledger,
	tradeLog *TradeLog, lastBar types.MarketData) (types.TradeStats, error) {
	result, err := tradeLog.Result()
	if err != nil {
		return types.TradeStats{}, err
	}

	finalTotal := ledger.Total()

	return types.TradeStats{
		ID:             runID,
		Timestamp:      time.Now(),
		Symbol:         lastBar.Symbol,
		Strategy:       s.strategyName,
		InitialCapital: initialCapital,
		FinalTotal:     finalTotal,
		TotalReturnPct: (finalTotal/initialCapital - 1) * 100,
		RealizedPnL:    ledger.RealizedPnL(),
		TradeResult:    result,
	}, nil
}

func openSymbolList(ledger *Ledger) ([]string, error) {
	positions, err := ledger.OpenPositions()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, position := range positions {
		symbols = append(symbols, position.Symbol)
	}

	return symbols, nil
}

func (s *Simulator) debug(msg string, fields ...zap.Field) {
	if s.log != nil {
		s.log.Debug(msg, fields...)
	}
}

// closeHistory collects the closes seen so far per symbol; it backs the
// risk manager's correlation screen during a replay.
type closeHistory struct {
	closes map[string][]float64
}

func newCloseHistory() *closeHistory {
	return &closeHistory{closes: make(map[string][]float64)}
}

func (h *closeHistory) Append(symbol string, close float64) {
	h.closes[symbol] = append(h.closes[symbol], close)
}

// TrailingCloses implements risk.PriceHistorySource. Correlation needs at
// least two observations; fewer is a warm-up shortfall, not missing data.
func (h *closeHistory) TrailingCloses(symbol string, window int) ([]float64, error) {
	series, ok := h.closes[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "no close history for %s", symbol)
	}

	if len(series) < 2 {
		return nil, errors.NewInsufficientDataErrorf(2, len(series), symbol,
			"close history for %s has %d observations, need at least 2", symbol, len(series))
	}

	if len(series) > window {
		series = series[len(series)-window:]
	}

	return series, nil
}
