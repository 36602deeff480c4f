package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivanchenka/lumo/internal/domain/enums"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	messagesvc "github.com/ivanchenka/lumo/internal/services/messages"
)

type readReceiptStore struct {
	mu         sync.Mutex
	marked     int64
	markReader int64
	markPeer   int64
}

func (s *readReceiptStore) Append(_ context.Context, rec pgrepo.MessageRecord) (pgrepo.MessageRecord, error) {
	return rec, nil
}

func (s *readReceiptStore) Delete(_ context.Context, _ string, _ int64) (bool, error) {
	return false, nil
}

func (s *readReceiptStore) MarkRead(_ context.Context, readerID, peerID int64, _ time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReader = readerID
	s.markPeer = peerID
	return s.marked, nil
}

type matchedPairs struct{}

func (matchedPairs) DeriveCategory(_ context.Context, _, _ int64) (enums.PairCategory, error) {
	return enums.CategoryBoth, nil
}

func dialTestHandler(t *testing.T, h *Handler, userID int64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{UserID: userID})
		h.Handle(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRoomIntentsAndReadReceipts(t *testing.T) {
	store := &readReceiptStore{marked: 3}
	msgService := messagesvc.NewService(messagesvc.Dependencies{Store: store, Categories: matchedPairs{}})
	h := NewHandler(NewHub(nil), msgService, nil)
	conn := dialTestHandler(t, h, 1)

	if err := conn.WriteJSON(clientIntent{Type: "join_room", PeerID: 2}); err != nil {
		t.Fatalf("write join_room: %v", err)
	}
	var joined roomEvent
	if err := conn.ReadJSON(&joined); err != nil {
		t.Fatalf("read join reply: %v", err)
	}
	if joined.Type != "room_joined" || joined.PeerID != 2 {
		t.Fatalf("unexpected join reply: %+v", joined)
	}

	// No explicit peer: the active room is the target.
	if err := conn.WriteJSON(clientIntent{Type: "mark_as_read"}); err != nil {
		t.Fatalf("write mark_as_read: %v", err)
	}
	var receipt readEvent
	if err := conn.ReadJSON(&receipt); err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if receipt.Type != "mark_as_read" || receipt.ReaderID != 1 || receipt.PeerID != 2 || receipt.Count != 3 {
		t.Fatalf("unexpected read receipt: %+v", receipt)
	}
	store.mu.Lock()
	reader, peer := store.markReader, store.markPeer
	store.mu.Unlock()
	if reader != 1 || peer != 2 {
		t.Fatalf("unexpected mark read args: reader=%d peer=%d", reader, peer)
	}

	if err := conn.WriteJSON(clientIntent{Type: "leave_room"}); err != nil {
		t.Fatalf("write leave_room: %v", err)
	}
	var left roomEvent
	if err := conn.ReadJSON(&left); err != nil {
		t.Fatalf("read leave reply: %v", err)
	}
	if left.Type != "room_left" {
		t.Fatalf("unexpected leave reply: %+v", left)
	}

	// After leaving, mark_as_read has no peer to target.
	if err := conn.WriteJSON(clientIntent{Type: "mark_as_read"}); err != nil {
		t.Fatalf("write mark_as_read without room: %v", err)
	}
	var failure errorEvent
	if err := conn.ReadJSON(&failure); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if failure.Type != "error" || failure.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error without a room, got %+v", failure)
	}
}

func TestJoinRoomRequiresPeer(t *testing.T) {
	msgService := messagesvc.NewService(messagesvc.Dependencies{Store: &readReceiptStore{}, Categories: matchedPairs{}})
	h := NewHandler(NewHub(nil), msgService, nil)
	conn := dialTestHandler(t, h, 1)

	if err := conn.WriteJSON(clientIntent{Type: "join_room"}); err != nil {
		t.Fatalf("write join_room: %v", err)
	}
	var failure errorEvent
	if err := conn.ReadJSON(&failure); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if failure.Type != "error" || failure.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %+v", failure)
	}
}
