package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/http/handlers"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Logger,
		middleware.CORS(nil),
		middleware.I18N(cfg.DefaultLocale, lookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Billing webhooks authenticate by signature, not JWT.
	r.Post("/v1/billing/events", app.BillingEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))

		r.Route("/v1/jobs", func(r chi.Router) {
			r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.JobsCreate)
			r.Get("/{job_id}", app.JobsGet)
			r.Post("/{job_id}/cancel", app.JobsCancel)
			r.Get("/{job_id}/events", app.JobsStream)
		})
	})

	return r
}
