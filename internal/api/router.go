// Package api serves the backtest engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bollinger-backtest/internal/model"
	"bollinger-backtest/internal/service"
)

// Backtester is the part of service.Runner the handlers use.
type Backtester interface {
	Run(ctx context.Context, req service.Request) (service.Outcome, error)
	Runs(ctx context.Context, limit int) ([]model.RunRecord, error)
	RunTrades(ctx context.Context, id int64) ([]model.ClosedTrade, error)
	Latest(ctx context.Context, exchange, symbol string) (model.BacktestResult, error)
}

// NewRouter sets up the API routes. health serves /api/v1/health; nil
// answers a static ok.
func NewRouter(bt Backtester, health http.Handler) http.Handler {
	h := &handlers{bt: bt}
	mux := http.NewServeMux()

	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	}
	mux.Handle("GET /api/v1/health", health)

	mux.HandleFunc("POST /api/v1/backtest", h.backtest)
	mux.HandleFunc("GET /api/v1/runs", h.runs)
	mux.HandleFunc("GET /api/v1/runs/{id}/trades", h.runTrades)
	mux.HandleFunc("GET /api/v1/results/{exchange}/{symbol}", h.latest)
	mux.HandleFunc("OPTIONS /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})

	return withLogging(mux)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
