package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when the
// notifier has a secret.
const SignatureHeader = "X-Backtest-Signature"

// WebhookNotifier POSTs run events as JSON to an HTTP endpoint. The body has
// a plain "text" line so chat webhooks can render it without a template.
type WebhookNotifier struct {
	url     string
	secret  []byte
	client  *http.Client
	now     func() time.Time
	retries int
	backoff time.Duration
}

// NewWebhookNotifier creates a webhook notifier for url. A non-empty secret
// signs every request.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now:     time.Now,
		retries: 2,
		backoff: 500 * time.Millisecond,
	}
}

// runEvent is the webhook body.
type runEvent struct {
	Event       string     `json:"event"`
	Text        string     `json:"text"`
	Level       AlertLevel `json:"level"`
	RunID       string     `json:"run_id,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	Exchange    string     `json:"exchange,omitempty"`
	Trades      int        `json:"trades"`
	TotalProfit float64    `json:"total_profit"`
	TS          string     `json:"ts"`
}

func newRunEvent(a Alert, ts time.Time) runEvent {
	return runEvent{
		Event:       "backtest.completed",
		Text:        fmt.Sprintf("[%s] %s: %s", a.Level, a.Title, a.Message),
		Level:       a.Level,
		RunID:       a.RunID,
		Symbol:      a.Symbol,
		Exchange:    a.Exchange,
		Trades:      a.Trades,
		TotalProfit: a.TotalProfit,
		TS:          ts.UTC().Format(time.RFC3339Nano),
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send posts the alert, retrying transport errors and 5xx responses.
// 4xx responses are not retried.
func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(newRunEvent(alert, w.now()))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}

		retry, err := w.post(ctx, body)
		if err == nil {
			log.Printf("[webhook] sent %s run=%s to %s", alert.Level, alert.RunID, w.url)
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, "sha256="+Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode >= 500, fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return false, nil
}
