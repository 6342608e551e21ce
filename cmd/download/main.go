package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/pkg/marketdata"
	"github.com/meridianlab/meridian-trading/pkg/marketdata/provider"
)

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	newLogger := logger.NewLogger
	if cmd.Bool("debug") {
		newLogger = logger.NewDebugLogger
	}

	appLogger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	timeframe, err := marketdata.ParseTimeframe(cmd.String("timeframe"))
	if err != nil {
		return err
	}

	symbols := cmd.StringSlice("symbols")
	if len(symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}

	source, err := provider.NewProvider(provider.ProviderType(cmd.String("provider")), provider.Config{
		PolygonAPIKey: os.Getenv("POLYGON_API_KEY"),
		Logger:        appLogger,
	})
	if err != nil {
		return err
	}

	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")

	appLogger.Info("downloading market data",
		zap.Strings("symbols", symbols),
		zap.String("timeframe", string(timeframe)),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	series, err := source.GetBars(ctx, symbols, timeframe, start, end)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	dataDir := cmd.String("data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	for _, symbol := range symbols {
		bars := series[symbol]

		path, err := provider.SymbolFilePath(dataDir, symbol)
		if err != nil {
			return err
		}

		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}

		if err := gocsv.MarshalFile(&bars, file); err != nil {
			file.Close()

			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}

		appLogger.Info("wrote bars",
			zap.String("symbol", symbol),
			zap.String("path", path),
			zap.Int("count", len(bars)),
		)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical OHLCV bars into per-symbol CSV files",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "symbols",
				Aliases:  []string{"y"},
				Usage:    "Trading pairs in BASE/QUOTE format (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "timeframe",
				Aliases: []string{"i"},
				Usage:   "Bar interval (e.g. 1m, 1h, 1d)",
				Value:   string(marketdata.TimeframeOneHour),
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
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
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s or %s)", provider.ProviderBinance, provider.ProviderPolygon),
				Value:   string(provider.ProviderBinance),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory for the per-symbol CSV files",
				Value:   "data",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
