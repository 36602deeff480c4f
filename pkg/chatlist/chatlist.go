// Package chatlist maintains a client-held projection of the user's
// conversation list: it bootstraps from paginated server snapshots,
// applies real-time events from an injected transport, and falls back to
// a full resync whenever incremental reasoning would be unsound.
package chatlist

import (
	"context"
	"time"
)

// Conversation is one row of the projected list, keyed by the peer's
// user id. It mirrors what the server reports plus any optimistic local
// update not yet confirmed by a refresh.
type Conversation struct {
	PeerUserID   int64
	DisplayName  string
	AvatarURL    string
	Category     string
	LastMessage  *LastMessage
	LastActivity time.Time
}

type LastMessage struct {
	Content  string
	Type     string
	SenderID int64
	SentAt   time.Time
}

// lastSentAt is the logical timestamp the merge rule compares on. Rows
// without any message fall back to their activity timestamp.
func lastSentAt(c Conversation) time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.SentAt
	}
	return c.LastActivity
}

// Fetcher pulls one page of conversations for a category from the
// server, ordered by most-recent-activity descending.
type Fetcher interface {
	FetchPage(ctx context.Context, category string, limit, offset int) ([]Conversation, error)
}

// Event is a real-time notification delivered out-of-band from the HTTP
// reads used for bootstrap and pagination.
type Event interface {
	isChatEvent()
}

// NewMessageEvent announces a message from a peer.
type NewMessageEvent struct {
	SenderID int64
	Content  string
	Type     string
	SentAt   time.Time
}

func (NewMessageEvent) isChatEvent() {}

// DeleteMessageEvent announces that some message was deleted. The client
// cannot tell whether it was the one shown as the last message, so the
// projection always resyncs on it.
type DeleteMessageEvent struct {
	MessageID string
	SenderID  int64
}

func (DeleteMessageEvent) isChatEvent() {}

// Transport is the injected real-time capability. The projection owns
// exactly one subscription per instance.
type Transport interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}
