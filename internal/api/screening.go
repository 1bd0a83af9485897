package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// RunScreening handles POST /api/screening/run
func (h *Handler) RunScreening(w http.ResponseWriter, r *http.Request) {
	report, err := h.Screening.Run(r.Context(), screenOptions(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetResults handles GET /api/screening/results
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Screening.Latest(r.Context()))
}

// ScreenStock handles GET /api/screening/stock/{symbol}
func (h *Handler) ScreenStock(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	result, err := h.Screening.ScreenOne(r.Context(), symbol, screenOptions(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetScreeningHistory handles GET /api/screening/history/{symbol}
func (h *Handler) GetScreeningHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("screening history is not available"))
		return
	}
	symbol := mux.Vars(r)["symbol"]

	history, err := h.History.GetScreeningHistory(r.Context(), symbol, queryInt(r, "limit", 30))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if history == nil {
		respondJSON(w, http.StatusOK, []any{})
		return
	}
	respondJSON(w, http.StatusOK, history)
}
