package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	feedsvc "github.com/ivanchenka/lumo/internal/services/feed"
	"github.com/ivanchenka/lumo/internal/transport/http/dto"
	httperrors "github.com/ivanchenka/lumo/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	query := r.URL.Query()
	limit := parseIntOrDefault(query.Get("limit"), 0)
	offset := parseIntOrDefault(query.Get("offset"), 0)

	page, err := h.service.GetFeed(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, feedsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid feed request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load feed")
		}
		return
	}

	items := make([]dto.FeedItem, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, dto.FeedItem{
			UserID:          item.UserID,
			DisplayName:     item.DisplayName,
			AvatarURL:       item.AvatarURL,
			Age:             item.Age,
			SharedInterests: item.SharedInterests,
			DistanceKM:      item.DistanceKM,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.FeedResponse{
		Items:  items,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
