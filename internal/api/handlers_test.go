package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianji-quant/tianji/internal/backtest"
	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/pkg/logger"
)

func testRouter(t *testing.T) (http.Handler, *ResultHandler) {
	t.Helper()
	log := logger.NewNop()
	handler := NewResultHandler(log)
	hub := NewProgressHub(log)
	go hub.Run()
	return NewRouter(handler, hub, log), handler
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetResult_NotFoundBeforePublish(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/result", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetResult_AfterPublish(t *testing.T) {
	router, handler := testRouter(t)

	handler.Publish(&backtest.Result{
		Config:      backtest.Config{InitialCash: 1_000_000},
		RulesHash:   "abc123",
		TradingDays: 3,
		EquityCurve: []ledger.EquityPoint{
			{Date: market.Day(2024, 1, 8), Total: 999751.04},
		},
		Summary: backtest.Summary{FinalValue: 999751.04},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/result", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc123", body["rules_hash"])
	assert.Equal(t, float64(3), body["trading_days"])
	assert.Equal(t, false, body["invalid"])

	req = httptest.NewRequest(http.MethodGet, "/api/backtest/equity", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var curve []ledger.EquityPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curve))
	require.Len(t, curve, 1)
	assert.Equal(t, 999751.04, curve[0].Total)
}

func TestGetScores_DateFilter(t *testing.T) {
	router, handler := testRouter(t)

	handler.Publish(&backtest.Result{
		ScoreHistory: []consensus.Score{
			{Symbol: "600519.SH", Date: market.Day(2024, 1, 8), Total: 80},
			{Symbol: "600519.SH", Date: market.Day(2024, 1, 9), Total: 60},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/consensus/scores?date=2024-01-09", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var scores []consensus.Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	require.Len(t, scores, 1)
	assert.Equal(t, 60, scores[0].Total)

	req = httptest.NewRequest(http.MethodGet, "/api/consensus/scores?date=bogus", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
