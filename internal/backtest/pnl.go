package backtest

import "bollinger-backtest/internal/model"

// profitFactorCap stands in for an infinite profit factor (no losing trades).
const profitFactorCap = 999

// TotalProfit sums the realized PnL of trades in order.
func TotalProfit(trades []model.ClosedTrade) float64 {
	var total float64
	for _, t := range trades {
		total += t.PnL()
	}
	return total
}

// Summary rolls up trade statistics for reporting.
type Summary struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"` // percent
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // positive magnitude
	Net          float64 `json:"net"`        // equals TotalProfit
	ProfitFactor float64 `json:"profit_factor"`
	Best         float64 `json:"best"`
	Worst        float64 `json:"worst"`
	MaxDrawdown  float64 `json:"max_drawdown"` // on the realized equity curve

	Longs       int `json:"longs"`
	Shorts      int `json:"shorts"`
	StopLosses  int `json:"stop_losses"`
	TakeProfits int `json:"take_profits"`
	EndOfData   int `json:"end_of_data"`
}

// Summarize computes a Summary over trades. Net is TotalProfit(trades).
func Summarize(trades []model.ClosedTrade) Summary {
	s := Summary{Trades: len(trades), Net: TotalProfit(trades)}
	if len(trades) == 0 {
		return s
	}

	s.Best, s.Worst = trades[0].PnL(), trades[0].PnL()
	var equity, peak float64
	for _, t := range trades {
		pnl := t.PnL()
		if pnl > 0 {
			s.Wins++
			s.GrossProfit += pnl
		} else {
			s.Losses++
			s.GrossLoss -= pnl
		}
		if pnl > s.Best {
			s.Best = pnl
		}
		if pnl < s.Worst {
			s.Worst = pnl
		}

		equity += pnl
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}

		if t.Side == model.SideShort {
			s.Shorts++
		} else {
			s.Longs++
		}
		switch t.Reason {
		case model.ExitStopLoss:
			s.StopLosses++
		case model.ExitTakeProfit:
			s.TakeProfits++
		case model.ExitEndOfData:
			s.EndOfData++
		}
	}

	s.WinRate = 100 * float64(s.Wins) / float64(s.Trades)
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = profitFactorCap
	}
	return s
}
