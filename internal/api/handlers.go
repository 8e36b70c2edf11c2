package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bollinger-backtest/internal/indicator"
	"bollinger-backtest/internal/model"
	"bollinger-backtest/internal/service"
)

const (
	maxBodyBytes     = 32 << 20
	defaultRunsLimit = 50
	maxRunsLimit     = 1000
)

type handlers struct {
	bt Backtester
}

// backtest handles POST /api/v1/backtest. The response body is the result
// wire format; the run ID is returned in the X-Run-Id header.
func (h *handlers) backtest(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)

	var in BacktestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if in.Symbol == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("symbol: %w", model.ErrInvalidParameter))
		return
	}
	if in.Exchange == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("exchange: %w", model.ErrInvalidParameter))
		return
	}
	p, err := in.Params.Params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := service.Request{
		Symbol:   in.Symbol,
		Exchange: in.Exchange,
		Candles:  in.Candles,
		Params:   p,
	}
	if in.After != nil {
		req.After = *in.After
	}

	out, err := h.bt.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("X-Run-Id", out.RunID)
	writeJSON(w, http.StatusOK, out.Result)
}

// runs handles GET /api/v1/runs?limit=N.
func (h *handlers) runs(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)

	limit := defaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.bt.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// tradeOut adds the derived fields a client wants when browsing a journal.
type tradeOut struct {
	model.ClosedTrade
	Reason model.ExitReason `json:"reason"`
	PnL    float64          `json:"pnl"`
}

// runTrades handles GET /api/v1/runs/{id}/trades.
func (h *handlers) runTrades(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid run id %q", r.PathValue("id")))
		return
	}

	trades, err := h.bt.RunTrades(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]tradeOut, len(trades))
	for i, t := range trades {
		out[i] = tradeOut{ClosedTrade: t, Reason: t.Reason, PnL: t.PnL()}
	}
	writeJSON(w, http.StatusOK, out)
}

// latest handles GET /api/v1/results/{exchange}/{symbol}.
func (h *handlers) latest(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)

	res, err := h.bt.Latest(r.Context(), r.PathValue("exchange"), r.PathValue("symbol"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidParameter),
		errors.Is(err, indicator.ErrInvalidConfig),
		errors.Is(err, model.ErrInvalidCandle):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorOut{Error: err.Error()})
}
