package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

const (
	DefaultTokenURL  = "https://api.upstox.com/v2/login/authorization/token"
	DefaultDialogURL = "https://api.upstox.com/v2/login/authorization/dialog"

	authTimeout = 10 * time.Second
)

// AuthConfig holds the OAuth application settings
type AuthConfig struct {
	APIKey      string
	APISecret   string
	RedirectURL string
	TokenURL    string
	DialogURL   string
}

// AuthClient exchanges authorization codes and refresh tokens at the token
// endpoint. It needs no bearer token of its own.
type AuthClient struct {
	cfg        AuthConfig
	httpClient *http.Client
}

// NewAuthClient creates a new token endpoint client
func NewAuthClient(cfg AuthConfig) *AuthClient {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.DialogURL == "" {
		cfg.DialogURL = DefaultDialogURL
	}
	return &AuthClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: authTimeout},
	}
}

// Configured reports whether the key and redirect URL needed for the login
// flow are set
func (a *AuthClient) Configured() bool {
	return a.cfg.APIKey != "" && a.cfg.RedirectURL != ""
}

// LoginURL returns the OAuth authorization dialog URL
func (a *AuthClient) LoginURL() string {
	params := url.Values{}
	params.Set("client_id", a.cfg.APIKey)
	params.Set("redirect_uri", a.cfg.RedirectURL)
	params.Set("response_type", "code")
	return a.cfg.DialogURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token grant
func (a *AuthClient) ExchangeCode(ctx context.Context, code string) (*models.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.APIKey)
	form.Set("client_secret", a.cfg.APISecret)
	form.Set("redirect_uri", a.cfg.RedirectURL)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	return a.post(ctx, form)
}

// Refresh trades a refresh token for a new grant. A rejected refresh token
// yields an error wrapping ErrAuthExpired.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenGrant, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.cfg.APIKey)
	form.Set("client_secret", a.cfg.APISecret)
	form.Set("grant_type", "refresh_token")
	return a.post(ctx, form)
}

func (a *AuthClient) post(ctx context.Context, form url.Values) (*models.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &APIError{Kind: ErrTimeout, Message: "token endpoint"}
		}
		return nil, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, &APIError{StatusCode: resp.StatusCode, Kind: ErrAuthExpired, Message: "token endpoint rejected credentials"}
	case http.StatusBadRequest:
		return nil, &APIError{StatusCode: resp.StatusCode, Kind: ErrBadRequest, Message: truncate(string(body))}
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Kind: ErrUpstream, Message: truncate(string(body))}
	}

	var grant models.TokenGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Kind: ErrUpstream, Message: "token response without access_token"}
	}
	return &grant, nil
}
