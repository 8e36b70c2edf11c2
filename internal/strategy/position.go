// Package strategy implements the Bollinger Band mean-reversion trade state
// machine.
//
// The state machine is pure: Step takes the current Position by value and
// returns the next one, so the caller owns and threads the state through its
// loop. A Position is either flat or holds exactly one OpenTrade.
package strategy

import "bollinger-backtest/internal/model"

// State is the coarse state of a Position.
type State uint8

const (
	StateFlat State = iota
	StateLong
	StateShort
)

func (s State) String() string {
	switch s {
	case StateLong:
		return "LONG"
	case StateShort:
		return "SHORT"
	}
	return "FLAT"
}

// Position is the single position slot: Flat() or Holding(trade).
// The zero value is flat.
type Position struct {
	trade model.OpenTrade
	open  bool
}

// Flat returns an empty position slot.
func Flat() Position { return Position{} }

// Holding returns a slot holding t.
func Holding(t model.OpenTrade) Position { return Position{trade: t, open: true} }

// IsFlat reports whether no trade is open.
func (p Position) IsFlat() bool { return !p.open }

// Trade returns the open trade, if any.
func (p Position) Trade() (model.OpenTrade, bool) { return p.trade, p.open }

// State returns FLAT, LONG or SHORT.
func (p Position) State() State {
	if !p.open {
		return StateFlat
	}
	if p.trade.Side == model.SideShort {
		return StateShort
	}
	return StateLong
}
