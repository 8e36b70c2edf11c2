// Package report renders backtest results for terminals and spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"bollinger-backtest/internal/backtest"
	"bollinger-backtest/internal/model"
)

// Style is the table style used by every renderer.
func Style() table.Style {
	style := table.StyleRounded
	style.Format.Header = text.FormatUpper
	style.Options.SeparateRows = false
	return style
}

// RenderSummary writes the headline numbers of a run.
func RenderSummary(w io.Writer, res model.BacktestResult, p model.Params) {
	s := backtest.Summarize(res.Trades)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(Style())
	t.SetTitle(res.Exchange + ":" + res.Symbol)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Indicator", fmt.Sprintf("BB(%d, %g)", p.Period, p.Multiplier)},
		{"SL / TP", fmt.Sprintf("%g / %g", p.StopLoss, p.TakeProfit)},
		{"Trades", s.Trades},
		{"Long / Short", fmt.Sprintf("%d / %d", s.Longs, s.Shorts)},
		{"Wins / Losses", fmt.Sprintf("%d / %d", s.Wins, s.Losses)},
		{"Win rate", fmt.Sprintf("%.2f%%", s.WinRate)},
		{"Gross profit", formatF(s.GrossProfit)},
		{"Gross loss", formatF(s.GrossLoss)},
		{"Profit factor", fmt.Sprintf("%.2f", s.ProfitFactor)},
		{"Best trade", formatF(s.Best)},
		{"Worst trade", formatF(s.Worst)},
		{"Max drawdown", formatF(s.MaxDrawdown)},
		{"Exits SL / TP / EOD", fmt.Sprintf("%d / %d / %d", s.StopLosses, s.TakeProfits, s.EndOfData)},
	})
	t.AppendFooter(table.Row{"Total profit", formatF(res.TotalProfit)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}

// RenderTrades writes one row per closed trade.
func RenderTrades(w io.Writer, trades []model.ClosedTrade) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(Style())
	t.AppendHeader(table.Row{"#", "Side", "Open", "Close", "Amount", "Exit", "PnL"})
	for i, tr := range trades {
		t.AppendRow(table.Row{
			i + 1, tr.Side.String(), formatF(tr.OpenPrice), formatF(tr.ClosePrice),
			formatF(tr.Amount), string(tr.Reason), formatF(tr.PnL()),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// RenderRuns writes journaled runs, newest first.
func RenderRuns(w io.Writer, runs []model.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(Style())
	t.AppendHeader(table.Row{"ID", "Run", "Instrument", "Period", "K", "Candles", "Trades", "Total profit", "Created"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID, r.RunID, r.Exchange + ":" + r.Symbol, r.Params.Period, r.Params.Multiplier,
			r.Candles, r.Trades, formatF(r.TotalProfit), r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

// WriteTradesCSV writes trades with a header row.
func WriteTradesCSV(w io.Writer, symbol string, trades []model.ClosedTrade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "side", "open_price", "close_price", "amount", "exit", "pnl"}); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			symbol, t.Side.String(), formatF(t.OpenPrice), formatF(t.ClosePrice),
			formatF(t.Amount), string(t.Reason), formatF(t.PnL()),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
