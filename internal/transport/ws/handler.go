package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	messagesvc "github.com/ivanchenka/lumo/internal/services/messages"
	httperrors "github.com/ivanchenka/lumo/internal/transport/http/errors"
)

// clientIntent is what a connected client may ask for.
type clientIntent struct {
	Type        string `json:"type"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	PeerID      int64  `json:"peer_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MsgType     string `json:"msg_type,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

type messageEvent struct {
	Type    string       `json:"type"`
	Message eventMessage `json:"message"`
}

type eventMessage struct {
	ID          string    `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Content     string    `json:"content"`
	MsgType     string    `json:"msg_type"`
	SentAt      time.Time `json:"sent_at"`
}

type deleteEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	SenderID  int64  `json:"sender_id"`
}

type roomEvent struct {
	Type   string `json:"type"`
	PeerID int64  `json:"peer_id,omitempty"`
}

type readEvent struct {
	Type     string `json:"type"`
	ReaderID int64  `json:"reader_id"`
	PeerID   int64  `json:"peer_id"`
	Count    int64  `json:"count"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub      *Hub
	messages *messagesvc.Service
	log      *zap.Logger
}

func NewHandler(hub *Hub, messages *messagesvc.Service, log *zap.Logger) *Handler {
	return &Handler{
		hub:      hub,
		messages: messages,
		log:      log,
	}
}

// Handle upgrades the connection and pumps client intents until the peer
// goes away. Every accepted message is persisted first and only then
// pushed to both sides, so a reconnecting client can always rebuild the
// same state from the store.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "authentication required",
		})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("ws upgrade failed", zap.Error(err))
		}
		return
	}

	// The request context expires with the per-request timeout middleware;
	// the socket outlives it, so intents run on their own contexts.
	baseCtx := context.Background()

	c := &client{
		userID: identity.UserID,
		conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
	}
	h.hub.register(c)
	go c.writePump()

	defer func() {
		h.hub.unregister(c)
		_ = conn.Close()
	}()

	// activeRoom is the peer conversation this connection currently
	// views; mark_as_read without an explicit peer targets it.
	var activeRoom int64

	for {
		var intent clientIntent
		if err := conn.ReadJSON(&intent); err != nil {
			if h.log != nil {
				h.log.Debug("ws client disconnected", zap.Int64("user_id", identity.UserID), zap.Error(err))
			}
			return
		}

		switch intent.Type {
		case "new_message":
			h.handleNewMessage(baseCtx, identity.UserID, intent)
		case "delete_message":
			h.handleDeleteMessage(baseCtx, identity.UserID, intent)
		case "join_room":
			if intent.PeerID <= 0 {
				h.hub.SendToUser(identity.UserID, errorEvent{Type: "error", Code: "VALIDATION_ERROR", Message: "join_room requires peer_id"})
				continue
			}
			activeRoom = intent.PeerID
			h.hub.SendToUser(identity.UserID, roomEvent{Type: "room_joined", PeerID: activeRoom})
		case "leave_room":
			activeRoom = 0
			h.hub.SendToUser(identity.UserID, roomEvent{Type: "room_left"})
		case "mark_as_read":
			h.handleMarkRead(baseCtx, identity.UserID, activeRoom, intent)
		case "ping":
			h.hub.SendToUser(identity.UserID, struct {
				Type string `json:"type"`
			}{Type: "pong"})
		default:
			h.hub.SendToUser(identity.UserID, errorEvent{
				Type:    "error",
				Code:    "UNSUPPORTED_INTENT",
				Message: "unsupported intent type",
			})
		}
	}
}

func (h *Handler) handleNewMessage(ctx context.Context, senderID int64, intent clientIntent) {
	if h.messages == nil {
		h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "MESSAGES_UNAVAILABLE", Message: "messaging is unavailable"})
		return
	}

	rec, err := h.messages.Send(ctx, senderID, intent.RecipientID, intent.Content, intent.MsgType)
	if err != nil {
		switch {
		case errors.Is(err, messagesvc.ErrValidation):
			h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "VALIDATION_ERROR", Message: "invalid message"})
		case errors.Is(err, messagesvc.ErrNotMatched):
			h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "NOT_MATCHED", Message: "messaging requires a mutual like"})
		default:
			if h.log != nil {
				h.log.Error("ws send message failed", zap.Error(err))
			}
			h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "INTERNAL_ERROR", Message: "failed to send message"})
		}
		return
	}

	event := messageEvent{
		Type: "new_message",
		Message: eventMessage{
			ID:          rec.ID,
			SenderID:    rec.SenderID,
			RecipientID: rec.RecipientID,
			Content:     rec.Content,
			MsgType:     rec.MsgType,
			SentAt:      rec.SentAt,
		},
	}
	h.hub.SendToUser(rec.RecipientID, event)
	h.hub.SendToUser(rec.SenderID, event)
}

// handleMarkRead stamps the peer's messages as read and notifies both
// sides so open clients can update their unread badges.
func (h *Handler) handleMarkRead(ctx context.Context, readerID, activeRoom int64, intent clientIntent) {
	if h.messages == nil {
		h.hub.SendToUser(readerID, errorEvent{Type: "error", Code: "MESSAGES_UNAVAILABLE", Message: "messaging is unavailable"})
		return
	}

	peerID := intent.PeerID
	if peerID == 0 {
		peerID = activeRoom
	}

	marked, err := h.messages.MarkRead(ctx, readerID, peerID)
	if err != nil {
		switch {
		case errors.Is(err, messagesvc.ErrValidation):
			h.hub.SendToUser(readerID, errorEvent{Type: "error", Code: "VALIDATION_ERROR", Message: "mark_as_read requires a peer"})
		default:
			if h.log != nil {
				h.log.Error("ws mark read failed", zap.Error(err))
			}
			h.hub.SendToUser(readerID, errorEvent{Type: "error", Code: "INTERNAL_ERROR", Message: "failed to mark messages read"})
		}
		return
	}

	event := readEvent{Type: "mark_as_read", ReaderID: readerID, PeerID: peerID, Count: marked}
	h.hub.SendToUser(peerID, event)
	h.hub.SendToUser(readerID, event)
}

func (h *Handler) handleDeleteMessage(ctx context.Context, senderID int64, intent clientIntent) {
	if h.messages == nil {
		h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "MESSAGES_UNAVAILABLE", Message: "messaging is unavailable"})
		return
	}

	removed, err := h.messages.Remove(ctx, senderID, intent.MessageID)
	if err != nil {
		switch {
		case errors.Is(err, messagesvc.ErrValidation):
			h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "VALIDATION_ERROR", Message: "invalid delete request"})
		default:
			if h.log != nil {
				h.log.Error("ws delete message failed", zap.Error(err))
			}
			h.hub.SendToUser(senderID, errorEvent{Type: "error", Code: "INTERNAL_ERROR", Message: "failed to delete message"})
		}
		return
	}
	if !removed {
		return
	}

	event := deleteEvent{Type: "delete_message", MessageID: intent.MessageID, SenderID: senderID}
	if intent.RecipientID > 0 {
		h.hub.SendToUser(intent.RecipientID, event)
	}
	h.hub.SendToUser(senderID, event)
}
