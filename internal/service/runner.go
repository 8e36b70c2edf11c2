// Package service orchestrates backtest runs: it loads candles, runs the
// engine and fans the result out to the journal, cache, metrics and
// notifiers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bollinger-backtest/internal/backtest"
	"bollinger-backtest/internal/logger"
	"bollinger-backtest/internal/metrics"
	"bollinger-backtest/internal/model"
	"bollinger-backtest/internal/notification"
)

// ErrUnavailable is returned when a request needs a store that is not configured.
var ErrUnavailable = errors.New("store not configured")

// Options wires the runner's collaborators. Only Source is needed to load
// candles; every other field may be nil.
type Options struct {
	Source   model.CandleSource
	Journal  model.RunJournal
	Cache    model.ResultCache
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Logger   *slog.Logger
}

// Runner executes backtests. It is safe for concurrent use as long as its
// collaborators are.
type Runner struct {
	source   model.CandleSource
	journal  model.RunJournal
	cache    model.ResultCache
	notifier notification.Notifier
	prom     *metrics.Metrics
	health   *metrics.HealthStatus
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Runner.
func New(opts Options) *Runner {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Runner{
		source:   opts.Source,
		journal:  opts.Journal,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		prom:     opts.Metrics,
		health:   opts.Health,
		log:      l,
		now:      time.Now,
	}
}

// Request describes one backtest. A nil Candles slice loads the series from
// the candle source (candles strictly after After); a non-nil one, even
// empty, is used as-is.
type Request struct {
	Symbol   string
	Exchange string
	Candles  []model.Candle
	After    time.Time
	Params   model.Params
}

// Outcome is a completed run.
type Outcome struct {
	RunID     string
	Result    model.BacktestResult
	Summary   backtest.Summary
	Candles   int
	JournalID int64 // 0 when the run was not journaled
}

// Run executes req. Only loading and engine errors are returned; failures to
// journal, cache or notify are logged and counted.
func (r *Runner) Run(ctx context.Context, req Request) (Outcome, error) {
	started := r.now()
	t0 := time.Now()
	key := req.Exchange + ":" + req.Symbol
	out := Outcome{RunID: logger.NewRunID(key, started)}
	ctx = logger.WithRunID(ctx, out.RunID)

	ticker, err := r.load(ctx, req)
	if err != nil {
		r.fail(ctx, key, err)
		return out, err
	}
	out.Candles = len(ticker.Candles)

	res, err := backtest.Run(ticker, req.Params)
	elapsed := time.Since(t0)
	if err != nil {
		r.fail(ctx, key, err)
		return out, err
	}
	out.Result = res
	out.Summary = backtest.Summarize(res.Trades)

	r.log.Info("backtest completed", append(logger.Attrs(ctx),
		slog.String("instrument", key),
		slog.Int("candles", out.Candles),
		slog.Int("trades", len(res.Trades)),
		slog.Float64("total_profit", res.TotalProfit),
		slog.Duration("elapsed", elapsed),
	)...)
	r.observe(ticker, res, elapsed)

	out.JournalID = r.journalRun(ctx, out, req.Params, started)
	r.cacheResult(ctx, res)
	r.notify(ctx, out)
	if r.health != nil {
		r.health.MarkRun(r.now())
	}
	return out, nil
}

// Runs lists journaled runs, newest first.
func (r *Runner) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if r.journal == nil {
		return nil, fmt.Errorf("run journal: %w", ErrUnavailable)
	}
	return r.journal.ListRuns(ctx, limit)
}

// RunTrades returns the journaled trades of run id.
func (r *Runner) RunTrades(ctx context.Context, id int64) ([]model.ClosedTrade, error) {
	if r.journal == nil {
		return nil, fmt.Errorf("run journal: %w", ErrUnavailable)
	}
	return r.journal.RunTrades(ctx, id)
}

// Latest returns the cached result for exchange:symbol.
func (r *Runner) Latest(ctx context.Context, exchange, symbol string) (model.BacktestResult, error) {
	if r.cache == nil {
		return model.BacktestResult{}, fmt.Errorf("result cache: %w", ErrUnavailable)
	}
	return r.cache.LatestResult(ctx, exchange, symbol)
}

func (r *Runner) load(ctx context.Context, req Request) (model.Ticker, error) {
	if req.Candles != nil {
		return model.Ticker{Symbol: req.Symbol, Exchange: req.Exchange, Candles: req.Candles}, nil
	}
	if r.source == nil {
		return model.Ticker{}, fmt.Errorf("candle source: %w", ErrUnavailable)
	}

	t, err := r.source.ReadTicker(ctx, req.Exchange, req.Symbol, req.After)
	if err != nil {
		return t, fmt.Errorf("load %s:%s: %w", req.Exchange, req.Symbol, err)
	}
	t.Symbol, t.Exchange = req.Symbol, req.Exchange
	return t, nil
}

func (r *Runner) fail(ctx context.Context, key string, err error) {
	r.log.Warn("backtest failed", append(logger.Attrs(ctx),
		slog.String("instrument", key),
		slog.String("error", err.Error()),
	)...)
	if r.prom != nil {
		r.prom.RunsTotal.WithLabelValues(metrics.ResultError).Inc()
	}
}

func (r *Runner) observe(t model.Ticker, res model.BacktestResult, elapsed time.Duration) {
	if r.prom == nil {
		return
	}
	r.prom.RunsTotal.WithLabelValues(metrics.ResultOK).Inc()
	r.prom.RunDuration.Observe(elapsed.Seconds())
	r.prom.CandlesTotal.Add(float64(len(t.Candles)))
	r.prom.LastProfit.WithLabelValues(res.Exchange, res.Symbol).Set(res.TotalProfit)
	for _, tr := range res.Trades {
		r.prom.TradesTotal.WithLabelValues(tr.Side.String(), string(tr.Reason)).Inc()
	}
}

func (r *Runner) journalRun(ctx context.Context, out Outcome, p model.Params, started time.Time) int64 {
	if r.journal == nil {
		return 0
	}
	rec := model.RunRecord{
		RunID:       out.RunID,
		Symbol:      out.Result.Symbol,
		Exchange:    out.Result.Exchange,
		Params:      p,
		Candles:     out.Candles,
		Trades:      len(out.Result.Trades),
		TotalProfit: out.Result.TotalProfit,
		CreatedAt:   started.UTC(),
	}

	start := time.Now()
	id, err := r.journal.SaveRun(ctx, rec, out.Result.Trades)
	if r.prom != nil {
		r.prom.JournalWriteDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.persistError(ctx, "journal", err)
		return 0
	}
	return id
}

func (r *Runner) cacheResult(ctx context.Context, res model.BacktestResult) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SaveResult(ctx, res); err != nil {
		r.persistError(ctx, "cache", err)
	}
}

func (r *Runner) notify(ctx context.Context, out Outcome) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, notification.RunCompleted(out.RunID, out.Result)); err != nil {
		r.persistError(ctx, "notify", err)
	}
}

func (r *Runner) persistError(ctx context.Context, sink string, err error) {
	r.log.Error("persist failed", append(logger.Attrs(ctx),
		slog.String("sink", sink),
		slog.String("error", err.Error()),
	)...)
	if r.prom != nil {
		r.prom.PersistErrors.WithLabelValues(sink).Inc()
	}
}
