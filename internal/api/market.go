package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/strategy"
	"github.com/trogers1052/stock-screener/internal/upstox"
)

// instrumentKey resolves the {symbol} route variable to its equity key
func (h *Handler) instrumentKey(r *http.Request) (string, error) {
	stock, err := h.Universe.Lookup(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		return "", err
	}
	key := stock.InstrumentKey()
	if key == "" {
		return "", fmt.Errorf("%w: no ISIN for %s", upstox.ErrNoData, stock.Symbol)
	}
	return key, nil
}

// GetHistorical handles GET /api/market/historical/{symbol}
func (h *Handler) GetHistorical(w http.ResponseWriter, r *http.Request) {
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	to := clock.Today(h.Clock)
	from := to.AddDate(0, 0, -queryInt(r, "days", h.HistoryDays))
	bars, err := h.Market.HistoricalDaily(r.Context(), key, from, to)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": bars})
}

// GetIntraday handles GET /api/market/intraday/{symbol}
func (h *Handler) GetIntraday(w http.ResponseWriter, r *http.Request) {
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	bars, err := h.Market.Intraday(r.Context(), key, queryInt(r, "interval", 1))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": bars})
}

// GetLTP handles GET /api/market/ltp/{instrument_key}
func (h *Handler) GetLTP(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["instrument_key"]

	ltp, err := h.Market.LTP(r.Context(), key)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ltp": ltp})
}

// GetOptionContracts handles GET /api/options/contracts/{symbol}
func (h *Handler) GetOptionContracts(w http.ResponseWriter, r *http.Request) {
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	contracts, err := h.Market.OptionContracts(r.Context(), key, r.URL.Query().Get("expiry_date"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"contracts": contracts, "instrument_key": key})
}

// GetOptionChain handles GET /api/options/chain/{symbol}
func (h *Handler) GetOptionChain(w http.ResponseWriter, r *http.Request) {
	expiry := r.URL.Query().Get("expiry_date")
	if expiry == "" {
		http.Error(w, "expiry_date is required", http.StatusBadRequest)
		return
	}
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	chain, err := h.Market.OptionChain(r.Context(), key, expiry)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, chain)
}

// GetExpiries handles GET /api/options/expiries/{symbol}
func (h *Handler) GetExpiries(w http.ResponseWriter, r *http.Request) {
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	contracts, err := h.Market.OptionContracts(r.Context(), key, "")
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"expiries": upstox.Expiries(contracts)})
}

// FindITM handles GET /api/options/itm/{symbol}. Without expiry_date the
// nearest listed expiry is used.
func (h *Handler) FindITM(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price, err := strconv.ParseFloat(q.Get("current_price"), 64)
	if err != nil || price <= 0 {
		http.Error(w, "current_price must be a positive number", http.StatusBadRequest)
		return
	}
	optionType := strings.ToUpper(q.Get("option_type"))
	if optionType != models.OptionTypeCall && optionType != models.OptionTypePut {
		http.Error(w, "option_type must be CE or PE", http.StatusBadRequest)
		return
	}
	key, err := h.instrumentKey(r)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	expiry := q.Get("expiry_date")
	contracts, err := h.Market.OptionContracts(r.Context(), key, expiry)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	if expiry == "" {
		nearest, ok := strategy.NearestExpiry(contracts)
		if !ok {
			respondError(w, http.StatusNotFound, errors.New("no expiry dates found"))
			return
		}
		contracts = filterExpiry(contracts, nearest)
	}

	contract, err := strategy.FindClosestITM(contracts, optionType, price)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"contract": contract})
}

func filterExpiry(contracts []models.OptionContract, expiry string) []models.OptionContract {
	var out []models.OptionContract
	for _, c := range contracts {
		if c.Expiry == expiry {
			out = append(out, c)
		}
	}
	return out
}
