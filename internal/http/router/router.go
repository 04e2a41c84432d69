// Package router arma las rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	challengectrl "github.com/dropDatabas3/holoauth/internal/http/controllers/challenge"
	healthctrl "github.com/dropDatabas3/holoauth/internal/http/controllers/health"
	notifyctrl "github.com/dropDatabas3/holoauth/internal/http/controllers/notify"
	"github.com/dropDatabas3/holoauth/internal/http/errors"
	mw "github.com/dropDatabas3/holoauth/internal/http/middlewares"
	"github.com/dropDatabas3/holoauth/internal/rate"
)

type Deps struct {
	Challenge *challengectrl.ChallengeController
	Redeem    *challengectrl.RedeemController
	Notify    *notifyctrl.NotifyController
	Health    *healthctrl.HealthController

	// Metrics sirve /metrics; nil lo omite.
	Metrics http.Handler
	// RateLimiter es opcional.
	RateLimiter rate.Limiter
}

// New devuelve el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	// Infra sin logging: se consultan muy seguido.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithRecover(), mw.WithRequestID())
		if deps.Health != nil {
			r.Get("/readyz", deps.Health.Readyz)
			r.Get("/livez", deps.Health.Livez)
		}
		if deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", deps.Metrics)
		}
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithLogging(),
			mw.WithMetrics(),
			mw.WithSecurityHeaders(),
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{Limiter: deps.RateLimiter}),
		)
		if deps.Challenge != nil {
			r.Post("/challenge", deps.Challenge.Request)
		}
		if deps.Redeem != nil {
			r.Get("/response", deps.Redeem.Response)
			r.Post("/zt_registration", deps.Redeem.ZTRegistration)
		}
		if deps.Notify != nil {
			r.Post("/notify", deps.Notify.Notify)
		}
	})

	return r
}
