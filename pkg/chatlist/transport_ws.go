package chatlist

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsEventBuffer = 16

// WSTransport subscribes to chat events over a websocket connection to
// the realtime endpoint. Unknown event types are skipped, not surfaced:
// the projection only reacts to the two kinds it can reason about.
type WSTransport struct {
	url       string
	authToken string
	dialer    *websocket.Dialer
	log       *zap.Logger
}

func NewWSTransport(url, authToken string, log *zap.Logger) *WSTransport {
	return &WSTransport{
		url:       url,
		authToken: authToken,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (t *WSTransport) Subscribe(ctx context.Context) (<-chan Event, error) {
	header := http.Header{}
	if t.authToken != "" {
		header.Set("Authorization", "Bearer "+t.authToken)
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial chat websocket: %w", err)
	}

	events := make(chan Event, wsEventBuffer)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(events)
		defer func() { _ = conn.Close() }()

		for {
			var envelope struct {
				Type    string `json:"type"`
				Message struct {
					ID          string    `json:"id"`
					SenderID    int64     `json:"sender_id"`
					RecipientID int64     `json:"recipient_id"`
					Content     string    `json:"content"`
					MsgType     string    `json:"msg_type"`
					SentAt      time.Time `json:"sent_at"`
				} `json:"message"`
				MessageID string `json:"message_id"`
				SenderID  int64  `json:"sender_id"`
			}
			if err := conn.ReadJSON(&envelope); err != nil {
				if t.log != nil && ctx.Err() == nil {
					t.log.Debug("chat websocket closed", zap.Error(err))
				}
				return
			}

			var event Event
			switch envelope.Type {
			case "new_message":
				event = NewMessageEvent{
					SenderID: envelope.Message.SenderID,
					Content:  envelope.Message.Content,
					Type:     envelope.Message.MsgType,
					SentAt:   envelope.Message.SentAt,
				}
			case "delete_message":
				event = DeleteMessageEvent{
					MessageID: envelope.MessageID,
					SenderID:  envelope.SenderID,
				}
			default:
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
