package dto

import "time"

type ConversationMessage struct {
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	SenderUserID int64     `json:"sender_user_id"`
	SentAt       time.Time `json:"sent_at"`
}

type ConversationItem struct {
	PeerUserID     int64                `json:"peer_user_id"`
	DisplayName    string               `json:"display_name"`
	AvatarURL      *string              `json:"avatar_url,omitempty"`
	Category       string               `json:"category"`
	LastMessage    *ConversationMessage `json:"last_message,omitempty"`
	LastActivityAt time.Time            `json:"last_activity_at"`
}

type ConversationsResponse struct {
	Items  []ConversationItem `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
