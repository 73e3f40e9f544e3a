package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nutrascan/internal/domain"
	"nutrascan/internal/gate"
	"nutrascan/internal/middleware"
)

type analyzeRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type analyzeResponse struct {
	AnalysisID string `json:"analysisId"`
	domain.AnalysisResult
	IsFreeTrial bool `json:"isFreeTrial"`
}

// Analyze is the main entry point: validate the submission, run it through
// the access gate, score it, persist, then settle the quota. The quota is
// consumed only after the analysis and its persistence both succeeded.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !domain.ValidInputType(req.Type) {
		a.error(w, http.StatusBadRequest, "bad_request", "type must be photo, text or voice")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "content is required")
		return
	}

	identity := gate.Identity{
		UserID:   a.currentUserID(r),
		ClientIP: middleware.ClientIP(r),
	}
	decision, err := a.Gate.Decide(r.Context(), identity)
	if err != nil {
		a.Logger.Error().Err(err).Msg("gate decision failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to evaluate access")
		return
	}
	if !decision.Allowed() {
		switch decision.Outcome {
		case gate.DenyNeedsAuth:
			a.json(w, http.StatusForbidden, errorResponse{
				Message:   "Free analysis used. Create an account to continue.",
				Code:      "needs_auth",
				NeedsAuth: true,
			})
		default:
			a.json(w, http.StatusForbidden, errorResponse{
				Message:      "Free analysis used. Upgrade to premium for unlimited scans.",
				Code:         "needs_premium",
				NeedsPremium: true,
			})
		}
		return
	}

	start := time.Now()
	result, err := a.Analyzer.Analyze(r.Context(), req.Content)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		a.Logger.Error().Err(err).Msg("analysis failed")
		a.logUsage(r.Context(), identity.UserID, identity.ClientIP, "ANALYZE", false, latency, map[string]any{"type": req.Type})
		a.error(w, http.StatusInternalServerError, "internal", "analysis failed, please try again")
		return
	}
	result.Normalize()
	a.enrichLocalAlternatives(result, identity.ClientIP)

	analysisID := uuid.NewString()
	persisted := true
	record := &domain.Analysis{ID: analysisID, UserID: identity.UserID, Result: *result}
	if err := a.Analyses.Insert(r.Context(), record); err != nil {
		// Availability over durability: the caller still gets the result
		// under a throwaway id, and keeps the free analysis.
		a.Logger.Error().Err(err).Msg("persist analysis failed, returning temporary id")
		analysisID = "temp-" + analysisID
		persisted = false
	}

	if persisted {
		if err := a.Gate.Commit(r.Context(), decision); err != nil {
			a.Logger.Error().Err(err).Msg("quota commit failed")
		}
	}
	a.logUsage(r.Context(), identity.UserID, identity.ClientIP, "ANALYZE", true, latency, map[string]any{
		"type":      req.Type,
		"score":     result.Score,
		"persisted": persisted,
	})

	a.json(w, http.StatusOK, analyzeResponse{
		AnalysisID:     analysisID,
		AnalysisResult: *result,
		IsFreeTrial:    decision.FreeTrial,
	})
}

// AnalysisByID returns a persisted analysis.
func (a *App) AnalysisByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "analysis not found")
		return
	}
	record, err := a.Analyses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		a.Logger.Error().Err(err).Msg("load analysis failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load analysis")
		return
	}
	a.json(w, http.StatusOK, struct {
		AnalysisID string `json:"analysisId"`
		domain.AnalysisResult
		CreatedAt time.Time `json:"createdAt"`
	}{
		AnalysisID:     record.ID,
		AnalysisResult: record.Result,
		CreatedAt:      record.CreatedAt,
	})
}

// enrichLocalAlternatives tags local suggestions with a coarse region from
// the caller's address when a GeoIP database is configured.
func (a *App) enrichLocalAlternatives(result *domain.AnalysisResult, clientIP string) {
	if a.GeoIP == nil || clientIP == "" || len(result.LocalAlternatives) == 0 {
		return
	}
	region, err := a.GeoIP.Region(clientIP)
	if err != nil || region == "" {
		return
	}
	for i := range result.LocalAlternatives {
		if result.LocalAlternatives[i].Location == "" {
			result.LocalAlternatives[i].Location = region
		}
	}
}
