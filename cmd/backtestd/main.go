// cmd/backtestd serves the backtest engine over HTTP with Prometheus metrics.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"bollinger-backtest/config"
	"bollinger-backtest/internal/api"
	"bollinger-backtest/internal/logger"
	"bollinger-backtest/internal/marketdata/csvfeed"
	"bollinger-backtest/internal/metrics"
	"bollinger-backtest/internal/notification"
	"bollinger-backtest/internal/service"
	redisstore "bollinger-backtest/internal/store/redis"
	sqlitestore "bollinger-backtest/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	slogger := logger.Init("backtestd", logger.ParseLevel(cfg.LogLevel))
	slogger.Info("starting", slog.String("http_addr", cfg.HTTPAddr), slog.String("metrics_addr", cfg.MetricsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()

	// ---- SQLite: candle store + run journal ----
	if d := filepath.Dir(cfg.SQLitePath); d != "." {
		os.MkdirAll(d, 0o755)
	}
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[backtestd] sqlite writer init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.SetSQLiteOK(true)

	opts := service.Options{
		Journal: sqlWriter,
		Metrics: prom,
		Health:  health,
		Logger:  slogger,
	}

	if cfg.CSVDir != "" {
		opts.Source = csvfeed.NewSource(cfg.CSVDir)
		slogger.Info("loading candles from csv", slog.String("dir", cfg.CSVDir))
	} else {
		sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[backtestd] sqlite reader init failed: %v", err)
		}
		defer sqlReader.Close()
		opts.Source = sqlReader
	}

	// ---- Redis result cache (optional) ----
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		cache, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.ResultTTL,
		})
		if err != nil {
			log.Printf("[backtestd] WARNING: redis unavailable: %v (continuing without result cache)", err)
		} else {
			defer cache.Close()
			cache.Breaker().OnStateChange = func(from, to redisstore.State) {
				log.Printf("[backtestd] redis circuit breaker %s -> %s", from, to)
				prom.SetBreakerState(int(to))
			}
			health.SetRedisConnected(true)
			rdb = cache.Client()
			opts.Cache = cache
		}
	}
	health.StartLivenessChecker(ctx, rdb, sqlWriter.DB(), 15*time.Second)

	// ---- Notifications ----
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}
	opts.Notifier = notifiers

	runner := service.New(opts)

	// ---- Servers ----
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, nil, health)
	metricsSrv.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(runner, health),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[backtestd] API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[backtestd] HTTP server error: %v", err)
		}
	}()

	// ---- Wait for shutdown signal ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[backtestd] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[backtestd] shutdown complete.")
}
