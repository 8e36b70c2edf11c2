package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"bollinger-backtest/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrDuplicateCandle is returned when two candles of one ticker fall on the
// same millisecond, the resolution of the candle table.
var ErrDuplicateCandle = errors.New("duplicate candle timestamp")

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/candles.db"
}

// Writer owns the schema and all writes: candle imports and the run journal.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			ts_ms      INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (exchange, symbol, ts_ms)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT    NOT NULL,
			symbol       TEXT    NOT NULL,
			exchange     TEXT    NOT NULL,
			period       INTEGER NOT NULL,
			multiplier   REAL    NOT NULL,
			sl           REAL    NOT NULL,
			tp           REAL    NOT NULL,
			usd_balance  REAL    NOT NULL,
			candles      INTEGER NOT NULL,
			trades       INTEGER NOT NULL,
			total_profit REAL    NOT NULL,
			created_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_instrument ON backtest_runs(exchange, symbol);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id      INTEGER NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			side        TEXT    NOT NULL,
			open_price  REAL    NOT NULL,
			close_price REAL    NOT NULL,
			amount      REAL    NOT NULL,
			pnl         REAL    NOT NULL,
			reason      TEXT,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

// WriteCandles upserts a ticker's candles in a single transaction. Timestamps
// are stored in Unix milliseconds; two candles on the same millisecond are
// rejected with ErrDuplicateCandle before anything is written.
func (w *Writer) WriteCandles(ctx context.Context, ticker model.Ticker) error {
	seen := make(map[int64]struct{}, len(ticker.Candles))
	for i, c := range ticker.Candles {
		ms := c.TS.UnixMilli()
		if _, dup := seen[ms]; dup {
			return fmt.Errorf("%s candle %d at %s: %w", ticker.Key(), i, c.TS.Format(time.RFC3339Nano), ErrDuplicateCandle)
		}
		seen[ms] = struct{}{}
	}

	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, exchange, ts_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range ticker.Candles {
		_, err := stmt.ExecContext(ctx, ticker.Symbol, ticker.Exchange, c.TS.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d candles for %s in %v", len(ticker.Candles), ticker.Key(), time.Since(start))
	return nil
}

// SaveRun journals a run header and its trades in one transaction and returns
// the row ID of the run.
func (w *Writer) SaveRun(ctx context.Context, rec model.RunRecord, trades []model.ClosedTrade) (int64, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (run_id, symbol, exchange, period, multiplier, sl, tp, usd_balance, candles, trades, total_profit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Symbol, rec.Exchange,
		rec.Params.Period, rec.Params.Multiplier, rec.Params.StopLoss, rec.Params.TakeProfit, rec.Params.USDBalance,
		rec.Candles, rec.Trades, rec.TotalProfit, rec.CreatedAt.Unix())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, seq, side, open_price, close_price, amount, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx, id, i, t.Side.String(), t.OpenPrice, t.ClosePrice, t.Amount, t.PnL(), string(t.Reason)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns the last limit journaled runs, newest first.
func (w *Writer) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return listRuns(ctx, w.db, limit)
}

// RunTrades returns the trades of a journaled run in closing order. An unknown
// id wraps model.ErrNotFound; a run with no trades returns an empty slice.
func (w *Writer) RunTrades(ctx context.Context, id int64) ([]model.ClosedTrade, error) {
	return runTrades(ctx, w.db, id)
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
