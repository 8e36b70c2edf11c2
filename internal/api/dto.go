package api

import (
	"fmt"
	"time"

	"bollinger-backtest/internal/model"
)

// BacktestRequest is the body of POST /api/v1/backtest. When Candles is
// absent the series is loaded from the candle store.
type BacktestRequest struct {
	Symbol   string         `json:"symbol"`
	Exchange string         `json:"exchange"`
	Candles  []model.Candle `json:"candles,omitempty"`
	After    *time.Time     `json:"after,omitempty"`
	Params   *ParamsIn      `json:"params"`
}

// ParamsIn uses pointers so a missing field can be told apart from zero.
type ParamsIn struct {
	Period     *int     `json:"period"`
	Multiplier *float64 `json:"multiplier"`
	StopLoss   *float64 `json:"sl"`
	TakeProfit *float64 `json:"tp"`
	USDBalance *float64 `json:"usd_balance"`
}

// Params returns the model parameters or an error naming the first missing field.
func (p *ParamsIn) Params() (model.Params, error) {
	if p == nil {
		return model.Params{}, fmt.Errorf("params: %w", model.ErrInvalidParameter)
	}
	switch {
	case p.Period == nil:
		return model.Params{}, fmt.Errorf("period: %w", model.ErrInvalidParameter)
	case p.Multiplier == nil:
		return model.Params{}, fmt.Errorf("multiplier: %w", model.ErrInvalidParameter)
	case p.StopLoss == nil:
		return model.Params{}, fmt.Errorf("sl: %w", model.ErrInvalidParameter)
	case p.TakeProfit == nil:
		return model.Params{}, fmt.Errorf("tp: %w", model.ErrInvalidParameter)
	case p.USDBalance == nil:
		return model.Params{}, fmt.Errorf("usd_balance: %w", model.ErrInvalidParameter)
	}
	return model.Params{
		Period:     *p.Period,
		Multiplier: *p.Multiplier,
		StopLoss:   *p.StopLoss,
		TakeProfit: *p.TakeProfit,
		USDBalance: *p.USDBalance,
	}, nil
}

// ErrorOut is the body of every non-2xx response.
type ErrorOut struct {
	Error string `json:"error"`
}
