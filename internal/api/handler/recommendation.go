package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/store"
)

// NewGetRecommendationHandler returns an http.HandlerFunc for
// GET /api/v1/gifts/{giftID}/recommendation.
func NewGetRecommendationHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		giftID, err := uuid.Parse(chi.URLParam(r, "giftID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "giftID must be a valid UUID", nil)
			return
		}

		rec, err := st.GetRecommendationByGiftID(r.Context(), giftID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound,
				"RECOMMENDATION_NOT_READY", "No recommendation exists for this gift yet", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load recommendation", nil)
			return
		}

		response.JSON(w, rec)
	}
}
