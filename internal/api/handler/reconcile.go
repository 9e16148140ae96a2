package handler

import (
	"context"
	"net/http"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/jobs"
)

// Reconciler defines the interface the trigger handler depends on.
type Reconciler interface {
	ReconcileOnce(ctx context.Context) (jobs.Summary, error)
}

// NewTriggerReconcileHandler returns an http.HandlerFunc for
// POST /internal/cron/gift-jobs, the out-of-band trigger for a reconcile
// pass. The in-process scheduler covers the steady state; this exists for
// external cron services and manual operator runs.
func NewTriggerReconcileHandler(rec Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := rec.ReconcileOnce(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"RECONCILE_FAILED", "Reconcile pass could not load active jobs", nil)
			return
		}
		response.JSON(w, summary)
	}
}
