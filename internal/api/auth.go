package api

import (
	"encoding/json"
	"net/http"
)

// AuthStatus handles GET /api/auth/status
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Tokens.Info(r.Context()))
}

// LoginURL handles GET /api/auth/login-url
func (h *Handler) LoginURL(w http.ResponseWriter, r *http.Request) {
	if h.Login == nil || !h.Login.Configured() {
		respondJSON(w, http.StatusOK, map[string]any{
			"url":   nil,
			"error": "API key and redirect URL are not configured",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"url": h.Login.LoginURL(), "error": nil})
}

// AuthCallback handles POST /api/auth/callback
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	if _, err := h.Tokens.ExchangeCode(r.Context(), req.Code); err != nil {
		h.log.Error().Err(err).Msg("authorization code exchange failed")
		respondJSON(w, statusFor(err), map[string]any{
			"success": false,
			"message": "Failed to exchange auth code for token",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token saved successfully"})
}

// ManualToken handles POST /api/auth/manual-token
func (h *Handler) ManualToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccessToken == "" {
		http.Error(w, "access_token is required", http.StatusBadRequest)
		return
	}

	if _, err := h.Tokens.Save(r.Context(), req.AccessToken, req.RefreshToken, req.ExpiresIn); err != nil {
		h.log.Error().Err(err).Msg("failed to save manual token")
		respondJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to save token"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token saved successfully"})
}

// RefreshToken handles POST /api/auth/refresh
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	tok, status := h.Tokens.GetWithAutoRefresh(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"success": tok != "", "status": status})
}

// ValidateToken handles POST /api/auth/validate
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Market.Profile(r.Context())
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{"valid": false, "profile": nil, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"valid": true, "profile": profile, "error": nil})
}

// DeleteToken handles DELETE /api/auth/token
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.Tokens.Delete(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("failed to delete token")
		respondJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
