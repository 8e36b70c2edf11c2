package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned when a strategy parameter is missing or
// outside its domain. Nothing is computed when it is returned.
var ErrInvalidParameter = errors.New("missing or invalid parameter")

// Params are the strategy inputs of one backtest run.
type Params struct {
	Period     int     `json:"period" yaml:"period"`           // Bollinger window length
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`   // stddev multiplier (k)
	StopLoss   float64 `json:"sl" yaml:"sl"`                   // fraction, 0.02 = 2%
	TakeProfit float64 `json:"tp" yaml:"tp"`                   // fraction
	USDBalance float64 `json:"usd_balance" yaml:"usd_balance"` // notional per trade
}

// Validate checks the parameters that sizing and exit rules depend on.
// Period and Multiplier are range-checked by the indicator itself.
func (p Params) Validate() error {
	if !finite(p.StopLoss) || p.StopLoss < 0 {
		return fmt.Errorf("sl=%v: %w", p.StopLoss, ErrInvalidParameter)
	}
	if !finite(p.TakeProfit) || p.TakeProfit < 0 {
		return fmt.Errorf("tp=%v: %w", p.TakeProfit, ErrInvalidParameter)
	}
	if !finite(p.USDBalance) || p.USDBalance <= 0 {
		return fmt.Errorf("usd_balance=%v: %w", p.USDBalance, ErrInvalidParameter)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
