// Package token owns the lifecycle of the single stored upstream credential:
// saving it, refreshing it ahead of expiry and reporting its status.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/upstox"
)

const (
	// DefaultRefreshWindow is how close to expiry a token is refreshed
	DefaultRefreshWindow = 30 * time.Minute

	// DefaultTTL applies when the token endpoint omits expires_in
	DefaultTTL = 24 * time.Hour

	refreshTimeout = 15 * time.Second
)

var (
	// ErrRefreshRejected means the refresh token itself is no longer accepted
	// and the user has to authorize again
	ErrRefreshRejected = errors.New("refresh token rejected")

	// ErrUnavailable is returned by Token when no usable access token exists
	ErrUnavailable = errors.New("no usable access token")
)

// Store persists the credential with replace semantics
type Store interface {
	// GetLatestToken returns nil without error when nothing is stored
	GetLatestToken(ctx context.Context) (*models.Credential, error)
	SaveToken(ctx context.Context, c *models.Credential) error
	DeleteToken(ctx context.Context) error
}

// Exchanger talks to the upstream token endpoint
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*models.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenGrant, error)
}

// Manager hands out access tokens, refreshing them when they near expiry
type Manager struct {
	store     Store
	exchanger Exchanger
	clock     clock.Clock
	window    time.Duration
	log       zerolog.Logger

	refreshes singleflight.Group

	mu    sync.Mutex
	state State
}

// NewManager creates a new credential manager
func NewManager(store Store, exchanger Exchanger, c clock.Clock, logger zerolog.Logger) *Manager {
	return &Manager{
		store:     store,
		exchanger: exchanger,
		clock:     c,
		window:    DefaultRefreshWindow,
		log:       logger.With().Str("component", "token").Logger(),
		state:     StateNoToken,
	}
}

// GetWithAutoRefresh returns the stored access token, refreshing it first
// when it is within the refresh window of expiry. The status is always set;
// the token is empty for every status other than valid and refreshed.
func (m *Manager) GetWithAutoRefresh(ctx context.Context) (string, Status) {
	cred, err := m.store.GetLatestToken(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to load credential")
		return "", errorStatus(err)
	}
	if cred == nil {
		m.setState(StateNoToken)
		return "", StatusNoToken
	}

	now := m.clock.Now()
	switch Classify(cred, now, m.window) {
	case StateValid:
		m.setState(StateValid)
		return cred.AccessToken, StatusValid
	case StateNoRefreshToken:
		m.setState(StateNoRefreshToken)
		return "", StatusNoRefreshToken
	}

	m.setState(StateRefreshing)
	token, err := m.Refresh(ctx, *cred.RefreshToken)
	if err != nil {
		m.setState(StateRefreshFailed)
		return "", StatusRefreshFailed
	}
	m.setState(StateValid)
	return token, StatusRefreshed
}

// alreadyRefreshed reports the stored access token when the stored
// credential no longer needs refreshToken: it is outside the refresh window,
// or it carries a different refresh token and has not expired.
func (m *Manager) alreadyRefreshed(ctx context.Context, refreshToken string) (string, bool) {
	stored, err := m.store.GetLatestToken(ctx)
	if err != nil || stored == nil || stored.AccessToken == "" {
		return "", false
	}
	now := m.clock.Now()
	if Classify(stored, now, m.window) == StateValid {
		return stored.AccessToken, true
	}
	rotated := !stored.HasRefreshToken() || *stored.RefreshToken != refreshToken
	if rotated && stored.ExpiresAt.After(now) {
		return stored.AccessToken, true
	}
	return "", false
}

// Token implements upstox.TokenSource for the data-fetch call sites
func (m *Manager) Token(ctx context.Context) (string, error) {
	token, status := m.GetWithAutoRefresh(ctx)
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, status)
	}
	return token, nil
}

// Refresh exchanges refreshToken for a new grant and stores it. On any
// failure the stored credential is left as it was. Concurrent callers share
// one upstream exchange, which outlives the cancellation of any one caller.
// A caller holding a refresh token that another exchange already replaced
// gets the stored access token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	v, err, shared := m.refreshes.Do("refresh", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		if token, ok := m.alreadyRefreshed(ctx, refreshToken); ok {
			return token, nil
		}

		grant, err := m.exchanger.Refresh(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, upstox.ErrAuthExpired) {
				return "", fmt.Errorf("%w: %v", ErrRefreshRejected, err)
			}
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
		if grant.RefreshToken == "" {
			grant.RefreshToken = refreshToken
		}
		ttl := DefaultTTL
		if grant.ExpiresIn > 0 {
			ttl = time.Duration(grant.ExpiresIn) * time.Second
		}
		if _, err := m.save(ctx, grant.AccessToken, grant.RefreshToken, ttl); err != nil {
			return "", err
		}
		return grant.AccessToken, nil
	})
	if err != nil {
		m.log.Warn().Err(err).Bool("shared", shared).Msg("token refresh failed")
		return "", err
	}
	m.log.Info().Bool("shared", shared).Msg("token refreshed")
	return v.(string), nil
}

// ExchangeCode completes the OAuth flow and stores the resulting credential
func (m *Manager) ExchangeCode(ctx context.Context, code string) (string, error) {
	grant, err := m.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	ttl := DefaultTTL
	if grant.ExpiresIn > 0 {
		ttl = time.Duration(grant.ExpiresIn) * time.Second
	}
	if _, err := m.save(ctx, grant.AccessToken, grant.RefreshToken, ttl); err != nil {
		return "", err
	}
	m.setState(StateValid)
	return grant.AccessToken, nil
}

// Save stores a manually supplied credential. A zero expiresIn stores no
// expiry, which the manager treats as always valid.
func (m *Manager) Save(ctx context.Context, accessToken, refreshToken string, expiresIn int64) (*models.Credential, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	var ttl time.Duration
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}
	cred, err := m.save(ctx, accessToken, refreshToken, ttl)
	if err != nil {
		return nil, err
	}
	m.setState(StateValid)
	return cred, nil
}

func (m *Manager) save(ctx context.Context, accessToken, refreshToken string, ttl time.Duration) (*models.Credential, error) {
	now := m.clock.Now()
	cred := &models.Credential{
		AccessToken: accessToken,
		CreatedAt:   now,
	}
	if refreshToken != "" {
		cred.RefreshToken = &refreshToken
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		cred.ExpiresAt = &exp
	}
	if err := m.store.SaveToken(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return cred, nil
}

// Delete removes the stored credential
func (m *Manager) Delete(ctx context.Context) error {
	if err := m.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	m.setState(StateNoToken)
	return nil
}

// Info describes the stored credential for the status endpoint
type Info struct {
	Authenticated   bool       `json:"authenticated"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	HasRefreshToken bool       `json:"has_refresh_token"`
	Status          Status     `json:"status"`
}

// Info reports the stored credential, refreshing it if it is due
func (m *Manager) Info(ctx context.Context) *Info {
	cred, err := m.store.GetLatestToken(ctx)
	if err != nil {
		return &Info{Status: errorStatus(err)}
	}
	if cred == nil || cred.AccessToken == "" {
		return &Info{Status: StatusNoToken}
	}

	token, status := m.GetWithAutoRefresh(ctx)
	if status == StatusRefreshed {
		if latest, err := m.store.GetLatestToken(ctx); err == nil && latest != nil {
			cred = latest
		}
	}
	created := cred.CreatedAt
	return &Info{
		Authenticated:   token != "",
		ExpiresAt:       cred.ExpiresAt,
		CreatedAt:       &created,
		HasRefreshToken: cred.HasRefreshToken(),
		Status:          status,
	}
}

// State returns the last observed lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
