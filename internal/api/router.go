package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kanpai-app/kanpai/internal/api/middleware"
	"github.com/kanpai-app/kanpai/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	TriggerAuth *mw.TriggerAuth
	RateLimit   *mw.RateLimit

	HealthHandler            http.HandlerFunc
	SubmitJobHandler         http.HandlerFunc
	GetJobHandler            http.HandlerFunc
	GetJobStatusHandler      http.HandlerFunc
	JobEventsHandler         http.HandlerFunc
	GetRecommendationHandler http.HandlerFunc
	TriggerReconcileHandler  http.HandlerFunc

	MetricsHandler http.Handler
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Job submission is the only write path exposed to clients; it carries
	// the rate limit. Polling and streaming stay unthrottled.
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}
		r.Post("/api/v1/gifts/{giftID}/jobs", orNotImplemented(deps.SubmitJobHandler))
	})

	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
	r.Get("/api/v1/jobs/{jobID}/status", orNotImplemented(deps.GetJobStatusHandler))
	r.Get("/api/v1/jobs/{jobID}/events", orNotImplemented(deps.JobEventsHandler))
	r.Get("/api/v1/gifts/{giftID}/recommendation", orNotImplemented(deps.GetRecommendationHandler))

	// Out-of-band reconcile trigger, token-guarded.
	r.Group(func(r chi.Router) {
		if deps.TriggerAuth != nil {
			r.Use(deps.TriggerAuth.Authenticate)
		}
		r.Post("/internal/cron/gift-jobs", orNotImplemented(deps.TriggerReconcileHandler))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
