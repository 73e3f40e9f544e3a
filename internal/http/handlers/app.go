package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"nutrascan/internal/domain"
	"nutrascan/internal/gate"
	"nutrascan/internal/infra"
	"nutrascan/internal/infra/geoip"
	"nutrascan/internal/infra/google"
	"nutrascan/internal/middleware"
	"nutrascan/internal/providers/analysis"
	"nutrascan/internal/sqlinline"
)

// ProfileStore is the slice of the profile repository the handlers consume.
type ProfileStore interface {
	UpsertByGoogleSub(ctx context.Context, sub, email, name string) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	StripeCustomerID(ctx context.Context, userID string) (string, error)
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	SetPremiumByStripeCustomer(ctx context.Context, customerID string, premium bool) error
	SetPremiumByID(ctx context.Context, userID string, premium bool) error
}

// AnalysisStore persists and loads analysis results.
type AnalysisStore interface {
	Insert(ctx context.Context, a *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
}

// IDTokenVerifier validates external identity-provider tokens.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*google.IDClaims, error)
}

// App is the handler container; main wires it once at startup.
type App struct {
	SQL            infra.SQLExecutor
	Logger         zerolog.Logger
	Config         *infra.Config
	Gate           *gate.Gate
	Analyzer       analysis.Analyzer
	Recommender    analysis.Recommender
	Profiles       ProfileStore
	Analyses       AnalysisStore
	GoogleVerifier IDTokenVerifier
	GeoIP          geoip.RegionResolver
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Message      string `json:"message"`
	Code         string `json:"code,omitempty"`
	NeedsAuth    bool   `json:"needsAuth,omitempty"`
	NeedsPremium bool   `json:"needsPremium,omitempty"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Message: message, Code: code})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// logUsage records one telemetry row, best effort. Failures are logged and
// never surfaced to the caller.
func (a *App) logUsage(ctx context.Context, userID, clientIP, eventType string, success bool, latencyMS int, props any) {
	if a.SQL == nil {
		return
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		propsJSON = []byte(`{}`)
	}
	if _, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent, userID, clientIP, eventType, success, latencyMS, propsJSON); err != nil {
		a.Logger.Error().Err(err).Str("event", eventType).Msg("log usage failed")
	}
}
