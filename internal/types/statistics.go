package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of winning trades that have positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of losing trades that have negative pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate.
	WinRate float64 `yaml:"win_rate"`
	// Average pnl across winning trades.
	AverageWin float64 `yaml:"average_win"`
	// Average pnl across losing trades (negative or zero).
	AverageLoss float64 `yaml:"average_loss"`
}

type TradeStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the trading pair.
	Symbol string `yaml:"symbol"`
	// Strategy is the name of the strategy that produced these stats.
	Strategy string `yaml:"strategy"`
	// InitialCapital is the cash the simulated portfolio started with.
	InitialCapital float64 `yaml:"initial_capital"`
	// FinalTotal is cash plus mark-to-market position value after the last bar.
	FinalTotal float64 `yaml:"final_total"`
	// TotalReturnPct is (FinalTotal/InitialCapital - 1) * 100.
	TotalReturnPct float64 `yaml:"total_return_pct"`
	// RealizedPnL is the sum of all realized trade pnl.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Result of all trades.
	TradeResult TradeResult `yaml:"trade_result"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// DataPath is the path to the market data file used for this backtest.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteTradeStats(path string, stats []TradeStats) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}
