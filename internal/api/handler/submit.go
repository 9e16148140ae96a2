package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/inference/openai"
	"github.com/kanpai-app/kanpai/internal/jobs"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// JobSubmitter defines the interface the submission handler depends on.
type JobSubmitter interface {
	Submit(ctx context.Context, gctx jobs.GiftContext) (*models.GiftJob, error)
}

// NewSubmitJobHandler returns an http.HandlerFunc for
// POST /api/v1/gifts/{giftID}/jobs. The request body is optional; when
// present it carries intake context forwarded into the inference prompt.
func NewSubmitJobHandler(st store.Store, submitter JobSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		giftID, err := uuid.Parse(chi.URLParam(r, "giftID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "giftID must be a valid UUID", nil)
			return
		}

		var req struct {
			HandoffSummary  *string        `json:"handoff_summary"`
			AdditionalNotes *string        `json:"additional_notes"`
			Preferences     map[string]any `json:"preferences"`
			Metadata        map[string]any `json:"metadata"`
			TraceGroupID    *string        `json:"trace_group_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		gift, err := st.GetGift(r.Context(), giftID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "GIFT_NOT_FOUND", "Gift not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load gift", nil)
			return
		}
		if gift.Status == models.GiftStatusClosed {
			response.Error(w, http.StatusConflict,
				"GIFT_CLOSED", "Gift is closed and cannot accept new jobs", nil)
			return
		}

		job, err := submitter.Submit(r.Context(), jobs.GiftContext{
			Gift:            gift,
			HandoffSummary:  req.HandoffSummary,
			AdditionalNotes: req.AdditionalNotes,
			Preferences:     req.Preferences,
			Metadata:        req.Metadata,
			TraceGroupID:    req.TraceGroupID,
		})
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrNotConfigured):
				response.Error(w, http.StatusServiceUnavailable,
					"INFERENCE_UNAVAILABLE", "The inference service is not configured", nil)
			case errors.Is(err, jobs.ErrInvalidGiftContext):
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "Gift context is invalid", nil)
			case errors.Is(err, openai.ErrUnreachable), errors.Is(err, openai.ErrTimeout):
				response.Error(w, http.StatusBadGateway,
					"INFERENCE_UNAVAILABLE", "The inference service did not accept the request", nil)
			default:
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, job)
	}
}
