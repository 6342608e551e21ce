package backtest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// TradeLog is the append-only sink for realized trades, backed by an
// in-memory duckdb database so runs can be queried with SQL and exported
// to parquet.
type TradeLog struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewTradeLog opens an in-memory trade log and creates its schema.
func NewTradeLog(log *logger.Logger) (*TradeLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to open trade log database", err)
	}

	t := &TradeLog{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := t.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return t, nil
}

func (t *TradeLog) initialize() error {
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			entry_price DOUBLE,
			stop_loss DOUBLE,
			take_profit DOUBLE,
			pnl DOUBLE,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to create trades table", err)
	}

	return nil
}

// Append inserts one realized trade. Trades are never updated or deleted.
func (t *TradeLog) Append(record types.TradeRecord) error {
	insertQuery := t.sq.
		Insert("trades").
		Columns(
			"id", "timestamp", "symbol", "side", "quantity",
			"entry_price", "stop_loss", "take_profit", "pnl", "exit_reason",
		).
		Values(
			record.ID, record.Timestamp, record.Symbol, string(record.Side), record.Quantity,
			record.EntryPrice, record.StopLoss, record.TakeProfit, record.PnL, string(record.ExitReason),
		).
		RunWith(t.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to insert trade", err)
	}

	return nil
}

// Trades returns all recorded trades in execution order.
func (t *TradeLog) Trades() ([]types.TradeRecord, error) {
	selectQuery := t.sq.
		Select(
			"id", "timestamp", "symbol", "side", "quantity",
			"entry_price", "stop_loss", "take_profit", "pnl", "exit_reason",
		).
		From("trades").
		OrderBy("timestamp ASC").
		RunWith(t.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var (
			record types.TradeRecord
			side   string
			reason string
		)

		err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.Symbol,
			&side,
			&record.Quantity,
			&record.EntryPrice,
			&record.StopLoss,
			&record.TakeProfit,
			&record.PnL,
			&reason,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		record.Side = types.PositionSide(side)
		record.ExitReason = types.ExitReason(reason)
		trades = append(trades, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Result aggregates the terminal trade statistics over the full log.
func (t *TradeLog) Result() (types.TradeResult, error) {
	query := `
		SELECT
			COUNT(*) AS total_trades,
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0) AS winning_trades,
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0) AS losing_trades,
			CASE WHEN COUNT(*) > 0
				THEN CAST(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END) AS DOUBLE) / COUNT(*)
				ELSE 0 END AS win_rate,
			COALESCE(AVG(CASE WHEN pnl > 0 THEN pnl END), 0) AS average_win,
			COALESCE(AVG(CASE WHEN pnl < 0 THEN pnl END), 0) AS average_loss
		FROM trades
	`

	var result types.TradeResult

	err := t.db.QueryRow(query).Scan(
		&result.NumberOfTrades,
		&result.NumberOfWinningTrades,
		&result.NumberOfLosingTrades,
		&result.WinRate,
		&result.AverageWin,
		&result.AverageLoss,
	)
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate trade result", err)
	}

	return result, nil
}

// Write exports the trade log to a parquet file in the given directory and
// returns the file path.
func (t *TradeLog) Write(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to create output directory", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")

	_, err := t.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to export trades to parquet", err)
	}

	if t.log != nil {
		t.log.Info("exported trades to parquet", zap.String("path", tradesPath))
	}

	return tradesPath, nil
}

// Cleanup drops all recorded trades and recreates the schema.
func (t *TradeLog) Cleanup() error {
	if _, err := t.db.Exec(`DROP TABLE IF EXISTS trades`); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to drop trades table", err)
	}

	return t.initialize()
}

// Close releases the underlying database.
func (t *TradeLog) Close() error {
	return t.db.Close()
}
