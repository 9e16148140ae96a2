package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/cache"
	"github.com/kanpai-app/kanpai/internal/store"
)

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := st.GetGiftJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewGetJobStatusHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/status, the cheap polling endpoint frontends hit
// every few seconds. It serves from the Redis mirror when possible and only
// falls back to the database on a cache miss.
func NewGetJobStatusHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		if ca != nil {
			status, found, err := ca.GetJobStatus(r.Context(), jobID)
			if err == nil && found {
				response.JSON(w, map[string]string{
					"job_id": jobID.String(),
					"status": status,
				})
				return
			}
		}

		job, err := st.GetGiftJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		response.JSON(w, map[string]string{
			"job_id": job.ID.String(),
			"status": job.Status,
		})
	}
}
