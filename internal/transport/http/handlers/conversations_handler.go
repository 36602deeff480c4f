package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	convsvc "github.com/ivanchenka/lumo/internal/services/conversations"
	"github.com/ivanchenka/lumo/internal/transport/http/dto"
	httperrors "github.com/ivanchenka/lumo/internal/transport/http/errors"
)

type ConversationsHandler struct {
	service *convsvc.Service
}

func NewConversationsHandler(service *convsvc.Service) *ConversationsHandler {
	return &ConversationsHandler{service: service}
}

func (h *ConversationsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CONVERSATIONS_SERVICE_UNAVAILABLE", "conversations service is unavailable")
		return
	}

	query := r.URL.Query()
	category := strings.TrimSpace(query.Get("category"))
	limit := parseIntOrDefault(query.Get("limit"), 0)
	offset := parseIntOrDefault(query.Get("offset"), 0)

	items, err := h.service.ListConversations(r.Context(), identity.UserID, category, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, convsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid conversations request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load conversations")
		}
		return
	}

	responseItems := make([]dto.ConversationItem, 0, len(items))
	for _, item := range items {
		conv := dto.ConversationItem{
			PeerUserID:     item.PeerUserID,
			DisplayName:    item.DisplayName,
			AvatarURL:      item.AvatarURL,
			Category:       string(item.Category),
			LastActivityAt: item.LastActivityAt,
		}
		if item.LastMessage != nil {
			conv.LastMessage = &dto.ConversationMessage{
				Content:      item.LastMessage.Content,
				Type:         item.LastMessage.Type,
				SenderUserID: item.LastMessage.SenderUserID,
				SentAt:       item.LastMessage.SentAt,
			}
		}
		responseItems = append(responseItems, conv)
	}

	if limit == 0 {
		limit = len(responseItems)
	}

	httperrors.Write(w, http.StatusOK, dto.ConversationsResponse{
		Items:  responseItems,
		Limit:  limit,
		Offset: offset,
	})
}
