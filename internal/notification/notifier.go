// Package notification delivers run-completed alerts to external channels.
package notification

import (
	"context"
	"fmt"
	"log"

	"bollinger-backtest/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level    AlertLevel `json:"level"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	RunID    string     `json:"run_id,omitempty"`
	Symbol   string     `json:"symbol,omitempty"`
	Exchange string     `json:"exchange,omitempty"`

	// Set by RunCompleted only.
	Trades      int     `json:"trades,omitempty"`
	TotalProfit float64 `json:"total_profit,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// RunCompleted builds the alert for a finished backtest. Losing runs are
// raised as warnings.
func RunCompleted(runID string, res model.BacktestResult) Alert {
	level := AlertInfo
	if res.TotalProfit < 0 {
		level = AlertWarning
	}
	return Alert{
		Level:       level,
		Title:       fmt.Sprintf("backtest %s:%s finished", res.Exchange, res.Symbol),
		Message:     fmt.Sprintf("%d trades, total profit %.4f", len(res.Trades), res.TotalProfit),
		RunID:       runID,
		Symbol:      res.Symbol,
		Exchange:    res.Exchange,
		Trades:      len(res.Trades),
		TotalProfit: res.TotalProfit,
	}
}

// LogNotifier writes alerts to the standard logger.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}
