package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trogers1052/stock-screener/internal/models"
)

type strategyRequest struct {
	Stocks          []models.TradeCandidate `json:"stocks"`
	ProfitTargetPct *float64                `json:"profit_target_pct"`
}

// PlaceOrder handles POST /api/orders/place
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.TransactionType = strings.ToUpper(req.TransactionType)
	if req.InstrumentKey == "" || req.Quantity <= 0 {
		http.Error(w, "instrument_key and a positive quantity are required", http.StatusBadRequest)
		return
	}
	if req.TransactionType != "BUY" && req.TransactionType != "SELL" {
		http.Error(w, "transaction_type must be BUY or SELL", http.StatusBadRequest)
		return
	}

	orderID, err := h.Market.PlaceOrder(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("instrument_key", req.InstrumentKey).Msg("order placement failed")
		respondError(w, statusFor(err), err)
		return
	}
	h.log.Info().Str("order_id", orderID).Str("instrument_key", req.InstrumentKey).Msg("order placed")
	respondJSON(w, http.StatusOK, map[string]any{"order_id": orderID})
}

// GetOrderBook handles GET /api/orders/book
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Market.OrderBook(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetOrder handles GET /api/orders/{order_id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	order, err := h.Market.OrderDetails(r.Context(), orderID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"order": order})
}

// GetPositions handles GET /api/orders/positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Market.Positions(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// ExecuteStrategy handles POST /api/orders/execute-strategy
func (h *Handler) ExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	h.runStrategy(w, r, false)
}

// PreviewStrategy handles POST /api/orders/preview-strategy. Decisions are
// computed exactly as for execute; neither path places orders.
func (h *Handler) PreviewStrategy(w http.ResponseWriter, r *http.Request) {
	h.runStrategy(w, r, true)
}

func (h *Handler) runStrategy(w http.ResponseWriter, r *http.Request, preview bool) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Stocks) == 0 {
		http.Error(w, "stocks is required", http.StatusBadRequest)
		return
	}
	target := *h.ProfitTargetPct
	if req.ProfitTargetPct != nil && *req.ProfitTargetPct >= 0 {
		target = *req.ProfitTargetPct
	}

	results := h.Strategy.Execute(r.Context(), req.Stocks, target)
	resp := map[string]any{"results": results}
	if preview {
		resp["preview"] = true
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetTradeDecisions handles GET /api/orders/decisions
func (h *Handler) GetTradeDecisions(w http.ResponseWriter, r *http.Request) {
	if h.Decisions == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("trade decisions are not available"))
		return
	}

	var (
		decisions []*models.TradeDecision
		err       error
	)
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		decisions, err = h.Decisions.GetTradeDecisionsByRun(r.Context(), runID)
	} else {
		decisions, err = h.Decisions.GetRecentTradeDecisions(r.Context(), queryInt(r, "limit", 50))
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if decisions == nil {
		decisions = []*models.TradeDecision{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}
