// Package upstox is a thin client for the Upstox v2 REST API covering the
// market data, option, order and OAuth token endpoints the screener uses.
package upstox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL      = "https://api.upstox.com"
	DefaultTimeout      = 5 * time.Second
	DefaultHeavyTimeout = 15 * time.Second

	contractAttempts   = 3
	defaultRetryPause  = 2 * time.Second
	orderTag           = "SCREENER_AUTO"
	statusSuccess      = "success"
	maxErrorBodyLength = 512
)

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds client settings. Zero values fall back to the defaults.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	HeavyTimeout time.Duration
	RetryPause   time.Duration
}

// Client calls the authenticated market, option and order endpoints
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	heavy      *http.Client
	retryPause time.Duration
	log        zerolog.Logger
}

// NewClient creates a new upstream client
func NewClient(cfg Config, tokens TokenSource, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HeavyTimeout <= 0 {
		cfg.HeavyTimeout = DefaultHeavyTimeout
	}
	if cfg.RetryPause <= 0 {
		cfg.RetryPause = defaultRetryPause
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		heavy:      &http.Client{Timeout: cfg.HeavyTimeout},
		retryPause: cfg.RetryPause,
		log:        logger.With().Str("component", "upstox").Logger(),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"errors"`
}

func (e *envelope) errorMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return e.Errors[0].Message
	}
	return fallback
}

func (c *Client) get(ctx context.Context, hc *http.Client, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, hc, http.MethodGet, path, query, nil)
}

// do performs an authenticated request and returns the data field of a
// successful envelope
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, payload any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &APIError{Kind: ErrNoToken, Message: err.Error()}
	}
	if token == "" {
		return nil, &APIError{Kind: ErrNoToken}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &APIError{Kind: ErrTimeout, Message: path}
		}
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream call")

	return decodeEnvelope(resp.StatusCode, raw)
}

func decodeEnvelope(status int, raw []byte) (json.RawMessage, error) {
	var env envelope
	parseErr := json.Unmarshal(raw, &env)

	switch {
	case status == http.StatusUnauthorized:
		return nil, &APIError{StatusCode: status, Kind: ErrAuthExpired, Message: env.errorMessage("")}
	case status == http.StatusTooManyRequests:
		return nil, &APIError{StatusCode: status, Kind: ErrRateLimited, Message: env.errorMessage("")}
	case status == http.StatusBadRequest:
		return nil, &APIError{StatusCode: status, Kind: ErrBadRequest, Message: env.errorMessage("bad request")}
	case status != http.StatusOK:
		return nil, &APIError{StatusCode: status, Kind: ErrUpstream, Message: env.errorMessage(truncate(string(raw)))}
	}

	if parseErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", parseErr)
	}
	if env.Status != statusSuccess {
		return nil, &APIError{StatusCode: status, Kind: ErrUpstream, Message: env.errorMessage("unknown error")}
	}
	return env.Data, nil
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength]
	}
	return s
}
