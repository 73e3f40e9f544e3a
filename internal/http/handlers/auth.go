package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"nutrascan/internal/domain"
	"nutrascan/internal/middleware"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	IsPremium          bool   `json:"isPremium"`
	FreeAnalysesUsed   int    `json:"freeAnalysesUsed"`
	FreeAnalysesRemain int    `json:"freeAnalysesRemaining"`
}

func (a *App) profileDTO(p *domain.Profile) userProfileDTO {
	remaining := 0
	if !p.IsPremium {
		remaining = a.Config.FreeAnalysisLimit - p.FreeAnalysesUsed
		if remaining < 0 {
			remaining = 0
		}
	}
	return userProfileDTO{
		ID:                 p.ID,
		Email:              p.Email,
		Name:               p.Name,
		IsPremium:          p.IsPremium,
		FreeAnalysesUsed:   p.FreeAnalysesUsed,
		FreeAnalysesRemain: remaining,
	}
}

// AuthVerify exchanges a Google ID token for a service session token,
// creating the profile row on first sign-in.
func (a *App) AuthVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	claims, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}

	profile, err := a.Profiles.UpsertByGoogleSub(r.Context(), claims.Subject, claims.Email, claims.Name)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist user")
		return
	}

	token, err := middleware.SignJWT(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:      profile.ID,
		Email:    profile.Email,
		Premium:  profile.IsPremium,
		Exp:      time.Now().Add(24 * time.Hour).Unix(),
		Issuer:   "nutrascan",
		Audience: "nutrascan-web",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	a.json(w, http.StatusOK, sessionResponse{Token: token, User: a.profileDTO(profile)})
}

// Me returns the signed-in caller's profile and quota state.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	profile, err := a.Profiles.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Msg("load profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}
	a.json(w, http.StatusOK, a.profileDTO(profile))
}
