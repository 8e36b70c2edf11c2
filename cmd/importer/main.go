// cmd/importer loads OHLCV CSV files into the SQLite candle store.
//
// Usage:
//
//	go run ./cmd/importer --csv=btc.csv --symbol=BTCUSDT --exchange=binance
//	go run ./cmd/importer --dir=data/csv   # imports {dir}/{exchange}/{symbol}.csv
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"bollinger-backtest/config"
	"bollinger-backtest/internal/marketdata/csvfeed"
	"bollinger-backtest/internal/model"
	sqlitestore "bollinger-backtest/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()

	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database")
	csvPath := flag.String("csv", "", "Single CSV file to import")
	symbol := flag.String("symbol", "", "Symbol for --csv")
	exchange := flag.String("exchange", "", "Exchange for --csv")
	dir := flag.String("dir", cfg.CSVDir, "Directory laid out as {exchange}/{symbol}.csv")
	flag.Parse()

	var tickers []model.Ticker
	switch {
	case *csvPath != "":
		if *symbol == "" || *exchange == "" {
			log.Fatal("[importer] --csv needs --symbol and --exchange")
		}
		t, err := csvfeed.ReadFile(*csvPath, *symbol, *exchange)
		if err != nil {
			log.Fatalf("[importer] %v", err)
		}
		tickers = append(tickers, t)
	case *dir != "":
		var err error
		if tickers, err = readDir(*dir); err != nil {
			log.Fatalf("[importer] %v", err)
		}
	default:
		log.Fatal("[importer] one of --csv or --dir is required")
	}

	if d := filepath.Dir(*dbPath); d != "." {
		os.MkdirAll(d, 0o755)
	}
	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[importer] sqlite open failed: %v", err)
	}
	defer writer.Close()

	ctx := context.Background()
	imported := 0
	for _, t := range tickers {
		if err := t.Validate(); err != nil {
			log.Printf("[importer] skipping %s: %v", t.Key(), err)
			continue
		}
		if err := writer.WriteCandles(ctx, t); err != nil {
			log.Fatalf("[importer] %s: %v", t.Key(), err)
		}
		imported += len(t.Candles)
	}
	log.Printf("[importer] imported %d candles for %d instruments into %s", imported, len(tickers), *dbPath)
}

// readDir loads every {exchange}/{symbol}.csv under dir.
func readDir(dir string) ([]model.Ticker, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*", "*.csv"))
	if err != nil {
		return nil, err
	}

	var tickers []model.Ticker
	for _, p := range paths {
		exchange := filepath.Base(filepath.Dir(p))
		symbol := strings.TrimSuffix(filepath.Base(p), ".csv")
		t, err := csvfeed.ReadFile(p, symbol, exchange)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, nil
}
