// Package indicator provides rolling-window technical indicators over closing
// prices.
//
// Indicators are fed one close at a time and are designed for single-goroutine
// use; an instance must not be shared between concurrent backtests.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned when an indicator is constructed with a
// period or multiplier outside its domain.
var ErrInvalidConfig = errors.New("invalid indicator configuration")

// Band is one Bollinger Band reading.
type Band struct {
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	StdDev float64 `json:"stddev"`
}

// ValidateConfig checks a Bollinger period and standard-deviation multiplier.
func ValidateConfig(period int, k float64) error {
	if period <= 0 {
		return fmt.Errorf("period=%d must be > 0: %w", period, ErrInvalidConfig)
	}
	if math.IsNaN(k) || math.IsInf(k, 0) || k <= 0 {
		return fmt.Errorf("multiplier=%v must be a positive number: %w", k, ErrInvalidConfig)
	}
	return nil
}
