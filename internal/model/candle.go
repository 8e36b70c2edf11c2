package model

import "time"

// Candle represents one OHLC bar of a historical series.
// The backtest engine reads Close only; the other fields ride along from the
// data source and are kept for storage and reporting.
type Candle struct {
	TS     time.Time `json:"ts"` // bucket start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the closing prices of candles in series order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
