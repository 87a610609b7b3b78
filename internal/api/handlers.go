package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/tianji-quant/tianji/internal/backtest"
	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/pkg/logger"
)

// ResultHandler serves the most recent finished run. The engine (or the CLI
// driving it) publishes a result here when a run completes.
type ResultHandler struct {
	mu     sync.RWMutex
	latest *backtest.Result
	logger *logger.Logger
}

// NewResultHandler creates an empty handler.
func NewResultHandler(log *logger.Logger) *ResultHandler {
	return &ResultHandler{logger: log}
}

// Publish stores a finished run for serving.
func (h *ResultHandler) Publish(result *backtest.Result) {
	h.mu.Lock()
	h.latest = result
	h.mu.Unlock()
}

func (h *ResultHandler) result() *backtest.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// GetResult returns the run config, validity and summary.
// GET /api/backtest/result
func (h *ResultHandler) GetResult(w http.ResponseWriter, _ *http.Request) {
	res := h.result()
	if res == nil {
		respondError(w, http.StatusNotFound, "No backtest result available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config":       res.Config,
		"rules_hash":   res.RulesHash,
		"invalid":      res.Invalid,
		"fault":        res.Fault,
		"trading_days": res.TradingDays,
		"summary":      res.Summary,
	})
}

// GetEquity returns the daily equity curve.
// GET /api/backtest/equity
func (h *ResultHandler) GetEquity(w http.ResponseWriter, _ *http.Request) {
	res := h.result()
	if res == nil {
		respondError(w, http.StatusNotFound, "No backtest result available")
		return
	}
	respondJSON(w, http.StatusOK, res.EquityCurve)
}

// GetTrades returns the executed trade log with execution failures.
// GET /api/backtest/trades
func (h *ResultHandler) GetTrades(w http.ResponseWriter, _ *http.Request) {
	res := h.result()
	if res == nil {
		respondError(w, http.StatusNotFound, "No backtest result available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trades":   res.Trades,
		"failures": res.Failures,
	})
}

// GetRejections returns the rule-rejection audit log.
// GET /api/backtest/rejections
func (h *ResultHandler) GetRejections(w http.ResponseWriter, _ *http.Request) {
	res := h.result()
	if res == nil {
		respondError(w, http.StatusNotFound, "No backtest result available")
		return
	}
	respondJSON(w, http.StatusOK, res.Rejections)
}

// GetScores returns the score history, optionally filtered by ?date= and
// limited by ?min_score=.
// GET /api/consensus/scores
func (h *ResultHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	res := h.result()
	if res == nil {
		respondError(w, http.StatusNotFound, "No backtest result available")
		return
	}

	scores := res.ScoreHistory
	if ds := r.URL.Query().Get("date"); ds != "" {
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD")
			return
		}
		filtered := make([]consensus.Score, 0)
		for _, sc := range scores {
			if sc.Date.Equal(date) {
				filtered = append(filtered, sc)
			}
		}
		scores = filtered
	}
	respondJSON(w, http.StatusOK, scores)
}
