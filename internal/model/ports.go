package model

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ── Storage Port Interfaces ──
// These interfaces decouple the runner from concrete storage implementations
// (SQLite, Redis). Each implementation satisfies one or more of them.

// CandleSource loads a ticker's historical candles in chronological order.
type CandleSource interface {
	// ReadTicker returns the series for exchange:symbol with TS > after.
	// Returns an error wrapping ErrNotFound when no candles exist.
	ReadTicker(ctx context.Context, exchange, symbol string, after time.Time) (Ticker, error)
}

// RunRecord is one journaled backtest run.
type RunRecord struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Symbol      string    `json:"symbol"`
	Exchange    string    `json:"exchange"`
	Params      Params    `json:"params"`
	Candles     int       `json:"candles"`
	Trades      int       `json:"trades"`
	TotalProfit float64   `json:"total_profit"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunJournal persists completed runs and their trades for later analysis.
type RunJournal interface {
	// SaveRun stores the run header and every closed trade.
	SaveRun(ctx context.Context, rec RunRecord, trades []ClosedTrade) (int64, error)

	// ListRuns returns the last limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// RunTrades returns the trades of run id in close order.
	RunTrades(ctx context.Context, id int64) ([]ClosedTrade, error)
}

// ResultCache stores the latest result per instrument for quick lookup.
type ResultCache interface {
	// SaveResult stores the result and announces it to subscribers.
	SaveResult(ctx context.Context, res BacktestResult) error

	// LatestResult returns the last stored result for exchange:symbol.
	// Returns an error wrapping ErrNotFound when nothing is cached.
	LatestResult(ctx context.Context, exchange, symbol string) (BacktestResult, error)
}
