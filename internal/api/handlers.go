package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/database"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/screener"
	"github.com/trogers1052/stock-screener/internal/strategy"
	"github.com/trogers1052/stock-screener/internal/token"
	"github.com/trogers1052/stock-screener/internal/universe"
	"github.com/trogers1052/stock-screener/internal/upstox"
)

// ScreeningService runs and serves screens
type ScreeningService interface {
	Run(ctx context.Context, opts datasource.Options) (*models.ScreeningReport, error)
	Latest(ctx context.Context) *models.ScreeningReport
	ScreenOne(ctx context.Context, symbol string, opts datasource.Options) (*models.ScreeningResult, error)
}

// HistoryReader reads persisted screening history
type HistoryReader interface {
	GetScreeningHistory(ctx context.Context, symbol string, limit int) ([]models.ScreeningHistory, error)
}

// TokenManager owns the upstream credential
type TokenManager interface {
	GetWithAutoRefresh(ctx context.Context) (string, token.Status)
	Info(ctx context.Context) *token.Info
	ExchangeCode(ctx context.Context, code string) (string, error)
	Save(ctx context.Context, accessToken, refreshToken string, expiresIn int64) (*models.Credential, error)
	Delete(ctx context.Context) error
}

// LoginProvider builds the OAuth authorization URL
type LoginProvider interface {
	Configured() bool
	LoginURL() string
}

// MarketClient is the upstream market, option and order API
type MarketClient interface {
	HistoricalDaily(ctx context.Context, instrumentKey string, from, to time.Time) ([]models.PriceBar, error)
	Intraday(ctx context.Context, instrumentKey string, intervalMinutes int) ([]models.IntradayBar, error)
	LTP(ctx context.Context, instrumentKey string) (float64, error)
	OptionContracts(ctx context.Context, instrumentKey, expiry string) ([]models.OptionContract, error)
	OptionChain(ctx context.Context, instrumentKey, expiry string) (*models.OptionChain, error)
	PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error)
	OrderDetails(ctx context.Context, orderID string) (json.RawMessage, error)
	OrderBook(ctx context.Context) (json.RawMessage, error)
	Positions(ctx context.Context) (json.RawMessage, error)
	Profile(ctx context.Context) (json.RawMessage, error)
}

// StockUniverse lists and reloads the screened stocks
type StockUniverse interface {
	List(ctx context.Context) ([]models.Stock, error)
	Lookup(ctx context.Context, symbol string) (models.Stock, error)
	Reload(ctx context.Context, path string) (int, error)
}

// StrategyExecutor prices option trades for flagged symbols
type StrategyExecutor interface {
	Execute(ctx context.Context, candidates []models.TradeCandidate, profitTargetPct float64) []*models.TradeDecision
}

// DecisionReader reads persisted trade decisions
type DecisionReader interface {
	GetRecentTradeDecisions(ctx context.Context, limit int) ([]*models.TradeDecision, error)
	GetTradeDecisionsByRun(ctx context.Context, runID string) ([]*models.TradeDecision, error)
}

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers. History, Decisions and
// DB may be nil when Postgres is not configured.
type Deps struct {
	Screening       ScreeningService
	History         HistoryReader
	Tokens          TokenManager
	Login           LoginProvider
	Market          MarketClient
	Universe        StockUniverse
	Strategy        StrategyExecutor
	Decisions       DecisionReader
	DB              Pinger
	Clock           clock.Clock
	UniverseFile    string
	HistoryDays     int
	// ProfitTargetPct is the target used when a request names none; nil
	// means strategy.DefaultProfitTargetPct
	ProfitTargetPct *float64
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	Deps
	log zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(deps Deps, logger zerolog.Logger) *Handler {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.HistoryDays <= 0 {
		deps.HistoryDays = 200
	}
	if deps.ProfitTargetPct == nil || *deps.ProfitTargetPct < 0 {
		target := strategy.DefaultProfitTargetPct
		deps.ProfitTargetPct = &target
	}
	return &Handler{
		Deps: deps,
		log:  logger.With().Str("component", "api").Logger(),
	}
}

// GetStocks handles GET /api/stocks
func (h *Handler) GetStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.Universe.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, stocks)
}

// ReloadStocks handles POST /api/stocks/reload
func (h *Handler) ReloadStocks(w http.ResponseWriter, r *http.Request) {
	n, err := h.Universe.Reload(r.Context(), h.UniverseFile)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to reload universe")
		respondJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain and upstream faults onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, universe.ErrUnknownSymbol),
		errors.Is(err, screener.ErrNotFound),
		errors.Is(err, database.ErrNotFound),
		errors.Is(err, strategy.ErrNoITMContract),
		errors.Is(err, upstox.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, upstox.ErrNoToken), errors.Is(err, upstox.ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, upstox.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, upstox.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, upstox.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, upstox.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(r *http.Request, key string, def bool) bool {
	if v := r.URL.Query().Get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func screenOptions(r *http.Request) datasource.Options {
	return datasource.Options{
		Mock:             queryBool(r, "use_mock", false),
		Live:             queryBool(r, "use_live_data", false),
		IntradayInterval: queryInt(r, "intraday_interval", 1),
	}
}
