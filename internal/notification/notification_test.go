package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bollinger-backtest/internal/model"
)

func TestRunCompleted(t *testing.T) {
	res := model.BacktestResult{
		Symbol:      "BTCUSDT",
		Exchange:    "binance",
		Trades:      []model.ClosedTrade{{}, {}},
		TotalProfit: -12.5,
	}
	a := RunCompleted("run-1", res)

	if a.Level != AlertWarning {
		t.Errorf("losing run should warn, got %s", a.Level)
	}
	if a.Title != "backtest binance:BTCUSDT finished" {
		t.Errorf("unexpected title %q", a.Title)
	}
	if a.Message != "2 trades, total profit -12.5000" {
		t.Errorf("unexpected message %q", a.Message)
	}
	if a.RunID != "run-1" || a.Trades != 2 || a.TotalProfit != -12.5 {
		t.Errorf("unexpected run fields %+v", a)
	}

	res.TotalProfit = 0
	if RunCompleted("", res).Level != AlertInfo {
		t.Error("break-even run should be info")
	}
}

func TestWebhookNotifier_SendsSignedRunEvent(t *testing.T) {
	var (
		got map[string]interface{}
		sig string
		raw []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		sig = r.Header.Get(SignatureHeader)
		raw, _ = io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "s3cret")
	n.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	res := model.BacktestResult{Symbol: "ETHUSDT", Exchange: "binance", Trades: []model.ClosedTrade{{}}, TotalProfit: 2.5}
	if err := n.Send(context.Background(), RunCompleted("run-7", res)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["event"] != "backtest.completed" || got["level"] != "INFO" || got["run_id"] != "run-7" {
		t.Errorf("unexpected payload %v", got)
	}
	if got["symbol"] != "ETHUSDT" || got["exchange"] != "binance" || got["trades"] != 1.0 || got["total_profit"] != 2.5 {
		t.Errorf("unexpected run fields %v", got)
	}
	if got["text"] != "[INFO] backtest binance:ETHUSDT finished: 1 trades, total profit 2.5000" {
		t.Errorf("unexpected text %v", got["text"])
	}
	if got["ts"] != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected ts %v", got["ts"])
	}
	if want := "sha256=" + Sign([]byte("s3cret"), raw); sig != want {
		t.Errorf("expected signature %q, got %q", want, sig)
	}
}

func TestWebhookNotifier_UnsignedWithoutSecret(t *testing.T) {
	var hasSig bool
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSig = r.Header[SignatureHeader]
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL, "").Send(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasSig {
		t.Error("expected no signature header without a secret")
	}
	if _, ok := got["run_id"]; ok {
		t.Error("empty run_id should be omitted")
	}
	if got["trades"] != 0.0 {
		t.Errorf("trades should always be present, got %v", got["trades"])
	}
}

func TestWebhookNotifier_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int
		wantErr   bool
	}{
		{"recovers after 5xx", []int{502, 503, 200}, 3, false},
		{"gives up after retries", []int{502, 502, 502, 502}, 3, true},
		{"4xx is final", []int{400, 200}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statuses[calls])
				calls++
			}))
			defer srv.Close()

			n := NewWebhookNotifier(srv.URL, "")
			n.backoff = 0

			err := n.Send(context.Background(), Alert{})
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestWebhookNotifier_StopsRetryingOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	n := NewWebhookNotifier(srv.URL, "")
	n.backoff = time.Hour
	time.AfterFunc(50*time.Millisecond, cancel)

	if err := n.Send(ctx, Alert{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Send(ctx context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestMulti_SendsToAllAndReturnsFirstError(t *testing.T) {
	errA := errors.New("a")
	a := &recordingNotifier{err: errA}
	b := &recordingNotifier{}

	err := Multi{a, b, NewLogNotifier()}.Send(context.Background(), Alert{Title: "x"})
	if err != errA {
		t.Errorf("expected first error, got %v", err)
	}
	if len(a.alerts) != 1 || len(b.alerts) != 1 {
		t.Errorf("expected every notifier to receive the alert")
	}
}
