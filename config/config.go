package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bollinger-backtest/internal/model"
)

// Config holds all application configuration loaded from environment variables.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
type Config struct {
	// Infrastructure
	SQLitePath    string
	CSVDir        string // when set, candles load from {dir}/{exchange}/{symbol}.csv
	RedisAddr     string // empty disables the result cache
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	// Servers
	HTTPAddr    string
	MetricsAddr string

	// Logging
	LogLevel string

	// Notifications (empty URL logs alerts instead)
	WebhookURL    string
	WebhookSecret string // HMAC key for the signature header, empty = unsigned

	// Strategy defaults, overridable per run
	Params model.Params
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		CSVDir:        getEnv("CANDLES_CSV_DIR", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ResultTTL:     getEnvDuration("RESULT_TTL", 24*time.Hour),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		Params: model.Params{
			Period:     getEnvInt("BB_PERIOD", 20),
			Multiplier: getEnvFloat("BB_MULTIPLIER", 2),
			StopLoss:   getEnvFloat("BB_SL", 0.02),
			TakeProfit: getEnvFloat("BB_TP", 0.04),
			USDBalance: getEnvFloat("BB_USD_BALANCE", 1000),
		},
	}
}

// LoadParams reads strategy parameters from a YAML file on top of base.
// Keys absent from the file keep their value from base; unknown keys are an
// error. The result is not validated here: the engine owns validation.
//
//	period: 20
//	multiplier: 2
//	sl: 0.02
//	tp: 0.04
//	usd_balance: 1000
func LoadParams(path string, base model.Params) (model.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config.LoadParams: read %q: %w", path, err)
	}

	p := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return base, fmt.Errorf("config.LoadParams: parse %q: %w", path, err)
	}
	return p, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
