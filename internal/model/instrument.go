package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCandle is returned when a candle cannot be traded on, e.g. a zero,
// negative or non-finite closing price.
var ErrInvalidCandle = errors.New("invalid candle")

// Ticker is an instrument plus its chronologically ordered candle series.
// Symbol and Exchange are opaque identifiers passed through to the result.
type Ticker struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	Candles  []Candle `json:"candles"`
}

// Key returns a unique key for this instrument: "exchange:symbol".
func (t *Ticker) Key() string {
	return t.Exchange + ":" + t.Symbol
}

// Validate checks every candle's close. Position sizing divides by the close,
// so a zero or negative price is rejected here rather than producing an
// infinite amount.
func (t *Ticker) Validate() error {
	for i, c := range t.Candles {
		if math.IsNaN(c.Close) || math.IsInf(c.Close, 0) || c.Close <= 0 {
			return fmt.Errorf("%s candle %d: close %v: %w", t.Key(), i, c.Close, ErrInvalidCandle)
		}
	}
	return nil
}
