package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"nutrascan/internal/http/handlers"
	"nutrascan/internal/middleware"
)

// NewRouter assembles the public API surface. Analysis submission resolves
// identity optionally so anonymous free-trial calls pass through; account
// and billing routes require a session token.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/api/healthz", app.Health)
	r.Get("/api/openapi.json", app.OpenAPIJSON)

	r.Post("/api/auth/verify", app.AuthVerify)
	r.Post("/api/billing/webhook", app.BillingWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthJWT(app.Config.JWTSecret))
		r.Post("/api/analyze", app.Analyze)
		r.Get("/api/analysis/{id}", app.AnalysisByID)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Get("/api/me", app.Me)
		r.Post("/api/ai/recommend", app.Recommend)
		r.Post("/api/billing/checkout", app.BillingCheckout)
	})

	return r
}
