// Package redis caches backtest results in Redis and announces them on a
// Pub/Sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bollinger-backtest/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// ResultChannel receives every saved result as JSON.
	ResultChannel = "pub:backtest"

	defaultResultTTL = 24 * time.Hour
)

// Config configures the result store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // lifetime of cached results, 0 = 24h
}

// ResultStore caches the latest result per instrument.
type ResultStore struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *Breaker
}

// New creates a ResultStore and pings the server.
func New(cfg Config) (*ResultStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &ResultStore{
		client:  client,
		ttl:     ttl,
		breaker: NewBreaker(3, 30*time.Second),
	}
}

// Client returns the underlying client for health checks.
func (s *ResultStore) Client() *goredis.Client { return s.client }

// Breaker exposes the circuit breaker so callers can observe transitions.
func (s *ResultStore) Breaker() *Breaker { return s.breaker }

// ResultKey returns the cache key: "bt:result:{exchange}:{symbol}".
func ResultKey(exchange, symbol string) string {
	return "bt:result:" + exchange + ":" + symbol
}

// SaveResult stores res under its instrument key and publishes it on
// ResultChannel in one transaction.
func (s *ResultStore) SaveResult(ctx context.Context, res model.BacktestResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	return s.breaker.Do(func() error {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, ResultKey(res.Exchange, res.Symbol), data, s.ttl)
		pipe.Publish(ctx, ResultChannel, data)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis save result: %w", err)
		}
		return nil
	}, nil)
}

// LatestResult returns the cached result for exchange:symbol.
func (s *ResultStore) LatestResult(ctx context.Context, exchange, symbol string) (model.BacktestResult, error) {
	var res model.BacktestResult
	var data []byte

	err := s.breaker.Do(func() error {
		var err error
		data, err = s.client.Get(ctx, ResultKey(exchange, symbol)).Bytes()
		return err
	}, isMiss)
	if isMiss(err) {
		return res, fmt.Errorf("result %s:%s: %w", exchange, symbol, model.ErrNotFound)
	}
	if err != nil {
		return res, fmt.Errorf("redis get result: %w", err)
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("unmarshal result: %w", err)
	}
	return res, nil
}

// Subscribe returns a Pub/Sub subscription to ResultChannel.
func (s *ResultStore) Subscribe(ctx context.Context) *goredis.PubSub {
	return s.client.Subscribe(ctx, ResultChannel)
}

// Close releases the client.
func (s *ResultStore) Close() error {
	return s.client.Close()
}

func isMiss(err error) bool {
	return errors.Is(err, goredis.Nil)
}
