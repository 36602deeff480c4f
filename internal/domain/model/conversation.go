package model

import (
	"time"

	"github.com/ivanchenka/lumo/internal/domain/enums"
)

// Conversation is a projection keyed by the peer user, never a persisted
// entity: the category is re-derived from the swipe ledger on every read.
type Conversation struct {
	PeerUserID        int64              `json:"peer_user_id"`
	DisplayName       string             `json:"display_name"`
	AvatarURL         *string            `json:"avatar_url"`
	Category          enums.PairCategory `json:"category"`
	LastMessage       *MessageSummary    `json:"last_message"`
	LastActivityAt    time.Time          `json:"last_activity_at"`
}

type MessageSummary struct {
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	SenderUserID int64     `json:"sender_user_id"`
	SentAt       time.Time `json:"sent_at"`
}
