package strategy

import (
	"bollinger-backtest/internal/indicator"
	"bollinger-backtest/internal/model"
)

// MeanReversion fades Bollinger Band extremes.
//
// While flat: a close above the upper band opens a SHORT, a close below the
// lower band opens a LONG, each sized USDBalance/close. While holding: the
// position closes when the close breaches the stop-loss or take-profit price
// derived from the entry. Entry rules are not evaluated while a position is
// open, so a position always goes back to flat before the opposite side can
// open. All comparisons are strict.
type MeanReversion struct {
	StopLoss   float64 // fraction of entry price, 0.02 = 2%
	TakeProfit float64 // fraction of entry price
	USDBalance float64 // notional allocated to each trade
}

// NewMeanReversion builds the state machine from run parameters.
func NewMeanReversion(p model.Params) MeanReversion {
	return MeanReversion{
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		USDBalance: p.USDBalance,
	}
}

// Step advances the state machine by one post-warm-up candle. It returns the
// next position and, when the candle closed a trade, that trade.
func (m MeanReversion) Step(pos Position, close float64, band indicator.Band) (Position, *model.ClosedTrade) {
	trade, open := pos.Trade()
	if !open {
		return m.enter(close, band), nil
	}
	if reason, ok := m.exitReason(trade, close); ok {
		closed := trade.Close(close, reason)
		return Flat(), &closed
	}
	return pos, nil
}

// Flush force-closes an open position at the final close of the series,
// regardless of stop-loss and take-profit. Returns nil when flat.
func (m MeanReversion) Flush(pos Position, lastClose float64) *model.ClosedTrade {
	trade, open := pos.Trade()
	if !open {
		return nil
	}
	closed := trade.Close(lastClose, model.ExitEndOfData)
	return &closed
}

// StopPrice returns the stop-loss price for t.
func (m MeanReversion) StopPrice(t model.OpenTrade) float64 {
	if t.Side == model.SideShort {
		return t.OpenPrice * (1 + m.StopLoss)
	}
	return t.OpenPrice * (1 - m.StopLoss)
}

// TargetPrice returns the take-profit price for t.
func (m MeanReversion) TargetPrice(t model.OpenTrade) float64 {
	if t.Side == model.SideShort {
		return t.OpenPrice * (1 - m.TakeProfit)
	}
	return t.OpenPrice * (1 + m.TakeProfit)
}

func (m MeanReversion) enter(close float64, band indicator.Band) Position {
	switch {
	case close > band.Upper:
		return Holding(m.open(model.SideShort, close))
	case close < band.Lower:
		return Holding(m.open(model.SideLong, close))
	}
	return Flat()
}

func (m MeanReversion) open(side model.Side, close float64) model.OpenTrade {
	return model.OpenTrade{
		OpenPrice: close,
		Amount:    m.USDBalance / close,
		Side:      side,
	}
}

func (m MeanReversion) exitReason(t model.OpenTrade, close float64) (model.ExitReason, bool) {
	stop, target := m.StopPrice(t), m.TargetPrice(t)
	switch t.Side {
	case model.SideLong:
		if close < stop {
			return model.ExitStopLoss, true
		}
		if close > target {
			return model.ExitTakeProfit, true
		}
	case model.SideShort:
		if close > stop {
			return model.ExitStopLoss, true
		}
		if close < target {
			return model.ExitTakeProfit, true
		}
	}
	return "", false
}
