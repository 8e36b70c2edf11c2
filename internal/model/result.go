package model

import "encoding/json"

// BacktestResult is the output record of one backtest run.
// TotalProfit always equals the sum of Trades[i].PnL() in order; it is
// assembled from Trades and never maintained as a separate running total.
type BacktestResult struct {
	Trades      []ClosedTrade `json:"trades"`
	TotalProfit float64       `json:"total_profit"`
	Symbol      string        `json:"symbol"`
	Exchange    string        `json:"exchange"`
}

// MarshalJSON encodes an empty trade list as [] rather than null.
func (r BacktestResult) MarshalJSON() ([]byte, error) {
	type alias BacktestResult
	a := alias(r)
	if a.Trades == nil {
		a.Trades = []ClosedTrade{}
	}
	return json.Marshal(a)
}

// JSON returns the JSON-encoded result (ignoring errors for hot-path usage).
func (r *BacktestResult) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
