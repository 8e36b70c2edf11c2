package metrics

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcome label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the Prometheus metrics for backtest runs.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec // labels: result=ok|error
	TradesTotal  *prometheus.CounterVec // labels: side, reason
	CandlesTotal prometheus.Counter
	RunDuration  prometheus.Histogram
	LastProfit   *prometheus.GaugeVec // labels: exchange, symbol

	// Persistence
	JournalWriteDur prometheus.Histogram
	PersistErrors   *prometheus.CounterVec // labels: sink=journal|cache|notify

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Backtest runs by result",
		}, []string{"result"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Closed trades by side and exit reason",
		}, []string{"side", "reason"}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_candles_total",
			Help: "Candles replayed through the engine",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a single backtest run",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		LastProfit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_last_total_profit",
			Help: "Total profit of the most recent run per instrument",
		}, []string{"exchange", "symbol"}),

		JournalWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_journal_write_duration_seconds",
			Help:    "SQLite run journal commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		PersistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_persist_errors_total",
			Help: "Failed writes to journal, cache or notifier",
		}, []string{"sink"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.TradesTotal,
		m.CandlesTotal,
		m.RunDuration,
		m.LastProfit,
		m.JournalWriteDur,
		m.PersistErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

// SetBreakerState records a circuit breaker transition. state uses the
// breaker's numeric encoding; a transition to 1 counts as a trip.
func (m *Metrics) SetBreakerState(state int) {
	m.RedisCircuitBreakerState.Set(float64(state))
	if state == 1 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server. gatherer may be nil for the
// default registry.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
