package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		hlog.NewHandler(logger.With().Str("component", "http").Logger()),
		hlog.RequestIDHandler("request_id", "X-Request-Id"),
		hlog.AccessHandler(logRequest),
	)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.HandleFunc("/api/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/status", handler.AuthStatus).Methods("GET")
	auth.HandleFunc("/login-url", handler.LoginURL).Methods("GET")
	auth.HandleFunc("/callback", handler.AuthCallback).Methods("POST")
	auth.HandleFunc("/manual-token", handler.ManualToken).Methods("POST")
	auth.HandleFunc("/refresh", handler.RefreshToken).Methods("POST")
	auth.HandleFunc("/validate", handler.ValidateToken).Methods("POST")
	auth.HandleFunc("/token", handler.DeleteToken).Methods("DELETE")

	screening := api.PathPrefix("/screening").Subrouter()
	screening.HandleFunc("/run", handler.RunScreening).Methods("POST")
	screening.HandleFunc("/results", handler.GetResults).Methods("GET")
	screening.HandleFunc("/stock/{symbol}", handler.ScreenStock).Methods("GET")
	screening.HandleFunc("/history/{symbol}", handler.GetScreeningHistory).Methods("GET")

	market := api.PathPrefix("/market").Subrouter()
	market.HandleFunc("/historical/{symbol}", handler.GetHistorical).Methods("GET")
	market.HandleFunc("/intraday/{symbol}", handler.GetIntraday).Methods("GET")
	market.HandleFunc("/ltp/{instrument_key:.+}", handler.GetLTP).Methods("GET")

	options := api.PathPrefix("/options").Subrouter()
	options.HandleFunc("/contracts/{symbol}", handler.GetOptionContracts).Methods("GET")
	options.HandleFunc("/chain/{symbol}", handler.GetOptionChain).Methods("GET")
	options.HandleFunc("/expiries/{symbol}", handler.GetExpiries).Methods("GET")
	options.HandleFunc("/itm/{symbol}", handler.FindITM).Methods("GET")

	orders := api.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("/place", handler.PlaceOrder).Methods("POST")
	orders.HandleFunc("/book", handler.GetOrderBook).Methods("GET")
	orders.HandleFunc("/positions", handler.GetPositions).Methods("GET")
	orders.HandleFunc("/execute-strategy", handler.ExecuteStrategy).Methods("POST")
	orders.HandleFunc("/preview-strategy", handler.PreviewStrategy).Methods("POST")
	orders.HandleFunc("/decisions", handler.GetTradeDecisions).Methods("GET")
	orders.HandleFunc("/{order_id}", handler.GetOrder).Methods("GET")

	api.HandleFunc("/stocks", handler.GetStocks).Methods("GET")
	api.HandleFunc("/stocks/reload", handler.ReloadStocks).Methods("POST")

	return r
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
