package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type recommendRequest struct {
	Goal string `json:"goal"`
}

type recommendResponse struct {
	Recommendation string `json:"recommendation"`
}

// Recommend returns a free-text supplement suggestion for a stated goal.
// Router-level auth guarantees a signed-in caller.
func (a *App) Recommend(w http.ResponseWriter, r *http.Request) {
	if a.currentUserID(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "goal is required")
		return
	}

	recommendation, err := a.Recommender.Recommend(r.Context(), req.Goal)
	if err != nil {
		a.Logger.Error().Err(err).Msg("recommendation failed")
		a.error(w, http.StatusInternalServerError, "internal", "recommendation failed, please try again")
		return
	}
	a.json(w, http.StatusOK, recommendResponse{Recommendation: recommendation})
}
