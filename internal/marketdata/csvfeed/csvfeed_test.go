package csvfeed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bollinger-backtest/internal/model"
)

func TestRead_WithHeader(t *testing.T) {
	in := `ts,open,high,low,close,volume
1700000000,10,11,9,10.5,100
1700000060,10.5,12,10,11.5,200
`
	tk, err := Read(strings.NewReader(in), "BTCUSDT", "binance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Symbol != "BTCUSDT" || tk.Exchange != "binance" {
		t.Errorf("unexpected identity %s:%s", tk.Exchange, tk.Symbol)
	}
	if len(tk.Candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(tk.Candles))
	}
	c := tk.Candles[1]
	if c.Close != 11.5 || c.High != 12 || c.Volume != 200 {
		t.Errorf("unexpected candle %+v", c)
	}
	if !c.TS.Equal(time.Unix(1700000060, 0)) {
		t.Errorf("unexpected ts %v", c.TS)
	}
}

func TestRead_TimestampFormats(t *testing.T) {
	in := `1700000000,1,1,1,1
1700000060000,1,1,1,2
2023-11-14T22:15:00Z,1,1,1,3
`
	tk, err := Read(strings.NewReader(in), "X", "Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{
		time.Unix(1700000000, 0),
		time.Unix(1700000060, 0),
		time.Date(2023, 11, 14, 22, 15, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !tk.Candles[i].TS.Equal(w) {
			t.Errorf("row %d: expected %v, got %v", i, w, tk.Candles[i].TS)
		}
	}
	if tk.Candles[0].Volume != 0 {
		t.Errorf("missing volume should be zero, got %v", tk.Candles[0].Volume)
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"short row", "1700000000,1,1,1\n", ErrNotEnoughColumns},
		{"bad time", "yesterday,1,1,1,1\n", ErrInvalidTime},
		{"bad price", "1700000000,1,1,1,abc\n", ErrInvalidPrice},
		{"unordered", "1700000060,1,1,1,1\n1700000000,1,1,1,1\n", ErrUnordered},
		{"duplicate ts", "1700000000,1,1,1,1\n1700000000,1,1,1,1\n", ErrUnordered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), "X", "Y")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRead_Empty(t *testing.T) {
	tk, err := Read(strings.NewReader("ts,open,high,low,close,volume\n"), "X", "Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tk.Candles) != 0 {
		t.Errorf("expected no candles, got %d", len(tk.Candles))
	}
}

// ────────────────────────────────────────────────────────────
// Source
// ────────────────────────────────────────────────────────────

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSource_ReadTicker(t *testing.T) {
	dir := t.TempDir()
	src := NewSource(dir)
	writeFile(t, src.Path("binance", "ETHUSDT"), "1000,1,1,1,1\n2000,1,1,1,2\n3000,1,1,1,3\n")

	tk, err := src.ReadTicker(context.Background(), "binance", "ETHUSDT", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tk.Candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(tk.Candles))
	}

	tk, err = src.ReadTicker(context.Background(), "binance", "ETHUSDT", time.Unix(2000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tk.Candles) != 1 || tk.Candles[0].Close != 3 {
		t.Errorf("expected only the candle after ts=2000, got %+v", tk.Candles)
	}
}

func TestSource_MissingFile(t *testing.T) {
	src := NewSource(t.TempDir())
	_, err := src.ReadTicker(context.Background(), "binance", "NOPE", time.Time{})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSource_EmptySeries(t *testing.T) {
	dir := t.TempDir()
	src := NewSource(dir)
	writeFile(t, src.Path("binance", "EMPTY"), "ts,open,high,low,close,volume\n")
	writeFile(t, src.Path("binance", "OLD"), "1000,1,1,1,1\n2000,1,1,1,2\n")

	if _, err := src.ReadTicker(context.Background(), "binance", "EMPTY", time.Time{}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("header-only file: expected ErrNotFound, got %v", err)
	}
	if _, err := src.ReadTicker(context.Background(), "binance", "OLD", time.Unix(2000, 0)); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("nothing after cutoff: expected ErrNotFound, got %v", err)
	}
}

func TestSource_RejectsZeroClose(t *testing.T) {
	dir := t.TempDir()
	src := NewSource(dir)
	writeFile(t, src.Path("binance", "BAD"), "1000,1,1,1,1\n2000,1,1,1,0\n")

	_, err := src.ReadTicker(context.Background(), "binance", "BAD", time.Time{})
	if !errors.Is(err, model.ErrInvalidCandle) {
		t.Errorf("expected ErrInvalidCandle, got %v", err)
	}
}

var _ model.CandleSource = (*Source)(nil)
