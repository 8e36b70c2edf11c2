// Package backtest runs the Bollinger Band mean-reversion strategy over a
// historical candle series and assembles the result.
//
// Run is synchronous, deterministic and free of side effects: it holds no
// state between calls, does no I/O and can be called from any number of
// goroutines at once.
package backtest

import (
	"bollinger-backtest/internal/indicator"
	"bollinger-backtest/internal/model"
	"bollinger-backtest/internal/strategy"
)

// Run backtests ticker with the given parameters.
//
// Errors:
//   - model.ErrInvalidParameter for sl, tp or usd_balance out of range
//   - indicator.ErrInvalidConfig for period <= 0 or a non-positive multiplier
//   - model.ErrInvalidCandle for a zero, negative or non-finite close
//
// A series shorter than the period is not an error: the result has no trades
// and zero profit.
func Run(ticker model.Ticker, p model.Params) (model.BacktestResult, error) {
	if err := p.Validate(); err != nil {
		return model.BacktestResult{}, err
	}
	bb, err := indicator.NewBollinger(p.Period, p.Multiplier)
	if err != nil {
		return model.BacktestResult{}, err
	}

	if len(ticker.Candles) < p.Period {
		return Assemble(ticker, nil), nil
	}
	if err := ticker.Validate(); err != nil {
		return model.BacktestResult{}, err
	}

	trades := simulate(bb, strategy.NewMeanReversion(p), ticker.Candles)
	return Assemble(ticker, trades), nil
}

// simulate primes bb with the first Period closes, steps the state machine on
// every following close and flushes whatever is still open at the end.
// Trades are returned in the order they were closed.
func simulate(bb *indicator.Bollinger, sm strategy.MeanReversion, candles []model.Candle) []model.ClosedTrade {
	warmup := bb.Period()
	bb.Prime(model.Closes(candles[:warmup]))

	var trades []model.ClosedTrade
	pos := strategy.Flat()
	for _, c := range candles[warmup:] {
		band := bb.Update(c.Close)

		var closed *model.ClosedTrade
		pos, closed = sm.Step(pos, c.Close, band)
		if closed != nil {
			trades = append(trades, *closed)
		}
	}

	if closed := sm.Flush(pos, candles[len(candles)-1].Close); closed != nil {
		trades = append(trades, *closed)
	}
	return trades
}

// Assemble packages closed trades into a result. Symbol and exchange are
// copied verbatim from the ticker and TotalProfit is derived from trades.
func Assemble(ticker model.Ticker, trades []model.ClosedTrade) model.BacktestResult {
	if trades == nil {
		trades = []model.ClosedTrade{}
	}
	return model.BacktestResult{
		Trades:      trades,
		TotalProfit: TotalProfit(trades),
		Symbol:      ticker.Symbol,
		Exchange:    ticker.Exchange,
	}
}
