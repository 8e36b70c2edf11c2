package strategy

import (
	"testing"

	"bollinger-backtest/internal/indicator"
	"bollinger-backtest/internal/model"
)

var testBand = indicator.Band{Middle: 100, Upper: 105, Lower: 95}

func newTestStrategy() MeanReversion {
	return MeanReversion{StopLoss: 0.1, TakeProfit: 0.2, USDBalance: 1000}
}

func TestStep_FlatStaysFlatInsideBand(t *testing.T) {
	m := newTestStrategy()
	for _, c := range []float64{95, 99, 100, 104.99, 105} {
		pos, closed := m.Step(Flat(), c, testBand)
		if !pos.IsFlat() || closed != nil {
			t.Errorf("close=%.2f: expected to stay flat, got state=%s closed=%v", c, pos.State(), closed)
		}
	}
}

func TestStep_OpensShortAboveUpper(t *testing.T) {
	m := newTestStrategy()
	pos, closed := m.Step(Flat(), 110, testBand)
	if closed != nil {
		t.Fatal("entry must not close a trade")
	}
	if pos.State() != StateShort {
		t.Fatalf("expected SHORT, got %s", pos.State())
	}
	tr, _ := pos.Trade()
	if tr.OpenPrice != 110 || tr.Amount != 1000.0/110 {
		t.Errorf("unexpected open trade %+v", tr)
	}
}

func TestStep_OpensLongBelowLower(t *testing.T) {
	m := newTestStrategy()
	pos, _ := m.Step(Flat(), 80, testBand)
	if pos.State() != StateLong {
		t.Fatalf("expected LONG, got %s", pos.State())
	}
	tr, _ := pos.Trade()
	if tr.OpenPrice != 80 || tr.Amount != 12.5 {
		t.Errorf("unexpected open trade %+v", tr)
	}
}

func TestStep_LongExits(t *testing.T) {
	m := newTestStrategy()
	open := model.OpenTrade{OpenPrice: 100, Amount: 10, Side: model.SideLong}

	cases := []struct {
		name   string
		close  float64
		exit   bool
		reason model.ExitReason
	}{
		{"stop-loss breach", 89, true, model.ExitStopLoss},
		{"take-profit breach", 121, true, model.ExitTakeProfit},
		{"inside range", 105, false, ""},
		{"exactly at stop", m.StopPrice(open), false, ""},
		{"exactly at target", m.TargetPrice(open), false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, closed := m.Step(Holding(open), tc.close, testBand)
			if !tc.exit {
				if closed != nil || pos.State() != StateLong {
					t.Fatalf("expected position to stay LONG, got %s closed=%v", pos.State(), closed)
				}
				return
			}
			if closed == nil || !pos.IsFlat() {
				t.Fatalf("expected exit to FLAT, got %s", pos.State())
			}
			if closed.Reason != tc.reason || closed.ClosePrice != tc.close || closed.OpenPrice != 100 || closed.Side != model.SideLong {
				t.Errorf("unexpected closed trade %+v", *closed)
			}
		})
	}
}

func TestStep_ShortExits(t *testing.T) {
	m := newTestStrategy()
	open := model.OpenTrade{OpenPrice: 100, Amount: 10, Side: model.SideShort}

	cases := []struct {
		name   string
		close  float64
		exit   bool
		reason model.ExitReason
	}{
		{"stop-loss breach", 111, true, model.ExitStopLoss},
		{"take-profit breach", 79, true, model.ExitTakeProfit},
		{"inside range", 95, false, ""},
		{"exactly at stop", m.StopPrice(open), false, ""},
		{"exactly at target", m.TargetPrice(open), false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, closed := m.Step(Holding(open), tc.close, testBand)
			if !tc.exit {
				if closed != nil || pos.State() != StateShort {
					t.Fatalf("expected position to stay SHORT, got %s closed=%v", pos.State(), closed)
				}
				return
			}
			if closed == nil || !pos.IsFlat() {
				t.Fatalf("expected exit to FLAT, got %s", pos.State())
			}
			if closed.Reason != tc.reason || closed.Side != model.SideShort {
				t.Errorf("unexpected closed trade %+v", *closed)
			}
		})
	}
}

func TestStep_OpenPositionIgnoresEntrySignals(t *testing.T) {
	m := MeanReversion{StopLoss: 0.5, TakeProfit: 0.5, USDBalance: 1000}
	open := model.OpenTrade{OpenPrice: 100, Amount: 10, Side: model.SideShort}

	// 110 is above the upper band but inside SHORT's stop: no re-entry, no change.
	pos, closed := m.Step(Holding(open), 110, testBand)
	if closed != nil {
		t.Fatal("unexpected close")
	}
	if tr, _ := pos.Trade(); tr != open {
		t.Errorf("open trade changed: %+v", tr)
	}
}

func TestStep_NoFlipInOneStep(t *testing.T) {
	m := newTestStrategy()
	open := model.OpenTrade{OpenPrice: 100, Amount: 10, Side: model.SideLong}

	// 130 breaches LONG take-profit and is also above the upper band. The
	// candle only closes the LONG; a SHORT is not opened on the same candle.
	pos, closed := m.Step(Holding(open), 130, testBand)
	if closed == nil || closed.Reason != model.ExitTakeProfit {
		t.Fatalf("expected take-profit exit, got %v", closed)
	}
	if !pos.IsFlat() {
		t.Fatalf("expected FLAT after exit, got %s", pos.State())
	}

	// Next candle may open again.
	pos, _ = m.Step(pos, 130, testBand)
	if pos.State() != StateShort {
		t.Errorf("expected SHORT on the following candle, got %s", pos.State())
	}
}

func TestFlush(t *testing.T) {
	m := newTestStrategy()
	if m.Flush(Flat(), 100) != nil {
		t.Error("flushing a flat position must return nil")
	}

	open := model.OpenTrade{OpenPrice: 100, Amount: 10, Side: model.SideLong}
	closed := m.Flush(Holding(open), 101)
	if closed == nil {
		t.Fatal("expected forced close")
	}
	if closed.ClosePrice != 101 || closed.Reason != model.ExitEndOfData {
		t.Errorf("unexpected flushed trade %+v", *closed)
	}
}

func TestPosition_ZeroValueIsFlat(t *testing.T) {
	var p Position
	if !p.IsFlat() || p.State() != StateFlat {
		t.Errorf("zero Position should be flat, got %s", p.State())
	}
	if _, ok := p.Trade(); ok {
		t.Error("zero Position should hold no trade")
	}
}
