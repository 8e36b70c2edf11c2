package backtest

import (
	"testing"

	"bollinger-backtest/internal/model"
)

func TestTotalProfit(t *testing.T) {
	trades := []model.ClosedTrade{
		{OpenPrice: 100, ClosePrice: 110, Amount: 2, Side: model.SideLong},  // +20
		{OpenPrice: 100, ClosePrice: 110, Amount: 2, Side: model.SideShort}, // -20
		{OpenPrice: 50, ClosePrice: 40, Amount: 1, Side: model.SideShort},   // +10
	}
	if got := TotalProfit(trades); got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
	if got := TotalProfit(nil); got != 0 {
		t.Errorf("expected 0 for no trades, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	trades := []model.ClosedTrade{
		{OpenPrice: 100, ClosePrice: 110, Amount: 1, Side: model.SideLong, Reason: model.ExitTakeProfit}, // +10
		{OpenPrice: 100, ClosePrice: 130, Amount: 1, Side: model.SideShort, Reason: model.ExitStopLoss},  // -30
		{OpenPrice: 100, ClosePrice: 95, Amount: 1, Side: model.SideShort, Reason: model.ExitTakeProfit}, // +5
		{OpenPrice: 100, ClosePrice: 100, Amount: 1, Side: model.SideLong, Reason: model.ExitEndOfData},  // 0
	}
	s := Summarize(trades)

	if s.Trades != 4 || s.Wins != 2 || s.Losses != 2 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.WinRate != 50 {
		t.Errorf("expected win rate 50, got %v", s.WinRate)
	}
	if s.GrossProfit != 15 || s.GrossLoss != 30 {
		t.Errorf("expected gross +15/-30, got %v/%v", s.GrossProfit, s.GrossLoss)
	}
	if s.Net != TotalProfit(trades) || s.Net != -15 {
		t.Errorf("expected net -15, got %v", s.Net)
	}
	if s.ProfitFactor != 0.5 {
		t.Errorf("expected profit factor 0.5, got %v", s.ProfitFactor)
	}
	if s.Best != 10 || s.Worst != -30 {
		t.Errorf("expected best 10 worst -30, got %v/%v", s.Best, s.Worst)
	}
	// equity: 10, -20, -15, -15 → peak 10, trough -20
	if s.MaxDrawdown != 30 {
		t.Errorf("expected max drawdown 30, got %v", s.MaxDrawdown)
	}
	if s.Longs != 2 || s.Shorts != 2 {
		t.Errorf("expected 2 longs 2 shorts, got %d/%d", s.Longs, s.Shorts)
	}
	if s.StopLosses != 1 || s.TakeProfits != 2 || s.EndOfData != 1 {
		t.Errorf("unexpected exit counts %+v", s)
	}
}

func TestSummarize_NoLosses(t *testing.T) {
	s := Summarize([]model.ClosedTrade{
		{OpenPrice: 10, ClosePrice: 12, Amount: 1, Side: model.SideLong},
	})
	if s.ProfitFactor != profitFactorCap {
		t.Errorf("expected capped profit factor, got %v", s.ProfitFactor)
	}
	if s.MaxDrawdown != 0 {
		t.Errorf("expected no drawdown, got %v", s.MaxDrawdown)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}
