package handler

import (
	"net/http"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/cache"
	"github.com/kanpai-app/kanpai/internal/store"
)

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// It reports degraded with 503 when either backing service is unreachable.
func NewHealthHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}
		healthy := true

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if ca == nil {
			checks["cache"] = "not configured"
		} else if err := ca.Ping(r.Context()); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		}

		if !healthy {
			response.Error(w, http.StatusServiceUnavailable,
				"SERVICE_UNAVAILABLE", "One or more dependencies are unhealthy", checks)
			return
		}
		response.JSON(w, map[string]any{
			"status": "ok",
			"checks": checks,
		})
	}
}
