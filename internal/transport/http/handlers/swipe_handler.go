package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	swipesvc "github.com/ivanchenka/lumo/internal/services/swipes"
	"github.com/ivanchenka/lumo/internal/transport/http/dto"
	httperrors "github.com/ivanchenka/lumo/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.ReceiverID <= 0 || strings.TrimSpace(req.Decision) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "receiver_id and decision are required")
		return
	}

	result, err := h.service.RecordSwipe(r.Context(), identity.UserID, req.ReceiverID, req.Decision)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrInvalidTarget):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "INVALID_TARGET",
				Message: "swipe target is not allowed",
			})
		default:
			if tf, ok := swipesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many swipe actions, slow down",
					RetryAfterSec: tf.RetryAfterSec,
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		OK:       true,
		Decision: string(result.Decision),
		Category: string(result.Category),
		Matched:  result.Matched,
	})
}

func (h *SwipeHandler) Unswipe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	receiverID, err := strconv.ParseInt(chi.URLParam(r, "receiverID"), 10, 64)
	if err != nil || receiverID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid receiver id")
		return
	}

	removed, err := h.service.RemoveSwipe(r.Context(), identity.UserID, receiverID)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation), errors.Is(err, swipesvc.ErrInvalidTarget):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unswipe request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to remove swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnswipeResponse{OK: true, Removed: removed})
}
