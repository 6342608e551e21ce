package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/backtest"
	"github.com/meridianlab/meridian-trading/internal/config"
	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/sentiment"
	"github.com/meridianlab/meridian-trading/internal/strategy"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
	"github.com/meridianlab/meridian-trading/pkg/marketdata/provider"
)

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	newLogger := logger.NewLogger
	if cmd.Bool("debug") {
		newLogger = logger.NewDebugLogger
	}

	appLogger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	cfg := config.DefaultConfig()

	if configPath := cmd.String("config"); configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg = *loaded
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	timeframe, err := marketdata.ParseTimeframe(cmd.String("timeframe"))
	if err != nil {
		return err
	}

	symbol := cmd.String("symbol")
	dataDir := cmd.String("data")
	strategyName := cmd.String("strategy")
	capital := cmd.Float("capital")

	source, err := provider.NewCSVProvider(dataDir, appLogger)
	if err != nil {
		return err
	}

	series, err := source.GetBars(ctx, []string{symbol}, timeframe, cmd.Timestamp("start"), cmd.Timestamp("end"))
	if err != nil {
		return fmt.Errorf("failed to load market data: %w", err)
	}

	bars := series[symbol]
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s in the requested range", symbol)
	}

	// The sentiment gate only applies when the config names an asset slug.
	var scorer sentiment.Provider = sentiment.NewNeutral()
	if cmd.IsSet("sentiment-score") && cfg.Slug != "" {
		scorer = sentiment.NewStatic(map[string]float64{cfg.Slug: cmd.Float("sentiment-score")})
	}

	tradeLog, err := backtest.NewTradeLog(appLogger)
	if err != nil {
		return err
	}
	defer tradeLog.Close()

	appLogger.Info("starting backtest",
		zap.String("symbol", symbol),
		zap.String("strategy", strategyName),
		zap.Int("bars", len(bars)),
		zap.Float64("initial_capital", capital),
	)

	simulator := backtest.NewSimulator(&cfg, strategyName, scorer, appLogger, true)

	stats, err := simulator.Run(capital, bars, tradeLog)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	outputDir := cmd.String("output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tradesPath, err := tradeLog.Write(outputDir)
	if err != nil {
		return fmt.Errorf("failed to write trade log: %w", err)
	}

	stats.TradesFilePath = tradesPath
	stats.DataPath = dataDir

	statsPath := filepath.Join(outputDir, "stats.yaml")
	if err := types.WriteTradeStats(statsPath, []types.TradeStats{stats}); err != nil {
		return err
	}

	appLogger.Info("backtest finished",
		zap.String("stats", statsPath),
		zap.String("trades", tradesPath),
		zap.Float64("final_total", stats.FinalTotal),
		zap.Float64("total_return_pct", stats.TotalReturnPct),
		zap.Int("trades_count", stats.TradeResult.NumberOfTrades),
	)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a strategy over historical bars and report trade statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML strategy configuration",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"S"},
				Usage:   fmt.Sprintf("Strategy to run (one of: %s)", strings.Join(strategy.Names(), ", ")),
				Value:   strategy.StrategyPullback,
			},
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"y"},
				Usage:    "Trading pair in BASE/QUOTE format",
				Value:    "BTC/USD",
				Required: false,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory holding per-symbol CSV bar files",
				Value:   "data",
			},
			&cli.StringFlag{
				Name:    "timeframe",
				Aliases: []string{"i"},
				Usage:   "Bar interval of the data files (e.g. 1m, 1h, 1d)",
				Value:   string(marketdata.TimeframeOneHour),
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Value:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.FloatFlag{
				Name:    "capital",
				Aliases: []string{"k"},
				Usage:   "Initial capital for the simulated portfolio",
				Value:   10000,
			},
			&cli.FloatFlag{
				Name:  "sentiment-score",
				Usage: "Fixed sentiment score in [-1, 1] for the configured asset slug",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for the trades parquet file and stats report",
				Value:   "results",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
