package model

// ExitReason records why a position was closed. It is kept in memory for
// reporting and the run journal; it is not part of the result wire format.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// OpenTrade is the single position a backtest may hold.
// Entry price, amount and side are fixed when the position opens.
type OpenTrade struct {
	OpenPrice float64 `json:"open_price"`
	Amount    float64 `json:"amount"` // units of the instrument
	Side      Side    `json:"side"`
}

// Close converts the open position into a closed trade at price.
func (t OpenTrade) Close(price float64, reason ExitReason) ClosedTrade {
	return ClosedTrade{
		OpenPrice:  t.OpenPrice,
		ClosePrice: price,
		Amount:     t.Amount,
		Side:       t.Side,
		Reason:     reason,
	}
}

// ClosedTrade is an immutable record of a completed round trip.
type ClosedTrade struct {
	OpenPrice  float64    `json:"open_price"`
	ClosePrice float64    `json:"close_price"`
	Amount     float64    `json:"amount"`
	Side       Side       `json:"side"`
	Reason     ExitReason `json:"-"`
}

// PnL returns the realized profit of the trade in quote currency.
func (t ClosedTrade) PnL() float64 {
	if t.Side == SideShort {
		return (t.OpenPrice - t.ClosePrice) * t.Amount
	}
	return (t.ClosePrice - t.OpenPrice) * t.Amount
}
