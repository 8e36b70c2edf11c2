// cmd/backtest runs one Bollinger Band mean-reversion backtest from the
// command line and prints the result.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=BTCUSDT --exchange=binance --period=20 --k=2 --sl=0.02 --tp=0.04
//	go run ./cmd/backtest --csv=btc.csv --symbol=BTCUSDT --exchange=binance --params=params.yaml --json
//	go run ./cmd/backtest --runs=20
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bollinger-backtest/config"
	"bollinger-backtest/internal/logger"
	"bollinger-backtest/internal/marketdata/csvfeed"
	"bollinger-backtest/internal/model"
	"bollinger-backtest/internal/report"
	"bollinger-backtest/internal/service"
	sqlitestore "bollinger-backtest/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.SetOutput(os.Stderr)

	cfg := config.Load()

	// Flags
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database")
	csvPath := flag.String("csv", "", "Read candles from this CSV file instead of SQLite")
	symbol := flag.String("symbol", "", "Instrument symbol, e.g. BTCUSDT")
	exchange := flag.String("exchange", "", "Exchange name, e.g. binance")
	afterStr := flag.String("after", "", "Only use candles after this RFC3339 time")
	paramsFile := flag.String("params", "", "YAML file with strategy parameters")
	period := flag.Int("period", cfg.Params.Period, "Bollinger window length")
	k := flag.Float64("k", cfg.Params.Multiplier, "Standard deviation multiplier")
	sl := flag.Float64("sl", cfg.Params.StopLoss, "Stop-loss fraction (0.02 = 2%)")
	tp := flag.Float64("tp", cfg.Params.TakeProfit, "Take-profit fraction")
	usd := flag.Float64("usd", cfg.Params.USDBalance, "Notional per trade in USD")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	showTrades := flag.Bool("trades", false, "Print a table of every trade")
	outCSV := flag.String("out-csv", "", "Write trades to this CSV file")
	journal := flag.Bool("journal", false, "Save the run to the SQLite journal")
	listRuns := flag.Int("runs", 0, "List the last N journaled runs and exit")
	logLevel := flag.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()

	slogger := logger.InitWriter(os.Stderr, "backtest", logger.ParseLevel(*logLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *listRuns > 0 {
		printRuns(ctx, *dbPath, *listRuns)
		return
	}

	if *symbol == "" || *exchange == "" {
		log.Fatal("[backtest] --symbol and --exchange are required")
	}

	// Parameters: env defaults, then the YAML file, then explicit flags.
	params := cfg.Params
	if *paramsFile != "" {
		var err error
		if params, err = config.LoadParams(*paramsFile, params); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "period":
			params.Period = *period
		case "k":
			params.Multiplier = *k
		case "sl":
			params.StopLoss = *sl
		case "tp":
			params.TakeProfit = *tp
		case "usd":
			params.USDBalance = *usd
		}
	})

	req := service.Request{Symbol: *symbol, Exchange: *exchange, Params: params}
	if *afterStr != "" {
		after, err := time.Parse(time.RFC3339, *afterStr)
		if err != nil {
			log.Fatalf("[backtest] invalid --after: %v", err)
		}
		req.After = after
	}

	opts := service.Options{Logger: slogger}
	if *csvPath != "" {
		ticker, err := csvfeed.ReadFile(*csvPath, *symbol, *exchange)
		if err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		req.Candles = filterAfter(ticker.Candles, req.After)
	} else {
		reader, err := sqlitestore.NewReader(*dbPath)
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer reader.Close()
		opts.Source = reader
	}
	if *journal {
		writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite writer init failed: %v", err)
		}
		defer writer.Close()
		opts.Journal = writer
	}

	out, err := service.New(opts).Run(ctx, req)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	if *asJSON {
		os.Stdout.Write(out.Result.JSON())
		fmt.Println()
	} else {
		report.RenderSummary(os.Stdout, out.Result, params)
		if *showTrades && len(out.Result.Trades) > 0 {
			report.RenderTrades(os.Stdout, out.Result.Trades)
		}
	}

	if *outCSV != "" {
		if err := writeTradesFile(*outCSV, out.Result); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		log.Printf("[backtest] wrote %d trades to %s", len(out.Result.Trades), *outCSV)
	}
}

func printRuns(ctx context.Context, dbPath string, n int) {
	reader, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	runs, err := reader.ListRuns(ctx, n)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	report.RenderRuns(os.Stdout, runs)
}

func filterAfter(candles []model.Candle, after time.Time) []model.Candle {
	if after.IsZero() {
		return candles
	}
	out := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		if c.TS.After(after) {
			out = append(out, c)
		}
	}
	return out
}

func writeTradesFile(path string, res model.BacktestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteTradesCSV(f, res.Symbol, res.Trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
