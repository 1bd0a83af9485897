package token

import (
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// Status is the caller-facing outcome of GetWithAutoRefresh
type Status string

const (
	StatusValid          Status = "valid"
	StatusRefreshed      Status = "refreshed"
	StatusNoToken        Status = "no_token"
	StatusRefreshFailed  Status = "refresh_failed"
	StatusNoRefreshToken Status = "no_refresh_token"
)

func errorStatus(err error) Status {
	return Status("error: " + err.Error())
}

// State is where the stored credential sits in its lifecycle
type State string

const (
	StateNoToken        State = "NoToken"
	StateValid          State = "Valid"
	StateExpiringSoon   State = "ExpiringSoon"
	StateRefreshing     State = "Refreshing"
	StateRefreshFailed  State = "RefreshFailed"
	StateNoRefreshToken State = "NoRefreshToken"
)

// Classify places a stored credential in its lifecycle at instant now. A
// credential without an expiry is always valid.
func Classify(c *models.Credential, now time.Time, window time.Duration) State {
	switch {
	case c == nil:
		return StateNoToken
	case c.ExpiresAt == nil || c.ExpiresAt.After(now.Add(window)):
		return StateValid
	case !c.HasRefreshToken():
		return StateNoRefreshToken
	default:
		return StateExpiringSoon
	}
}
