package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	convsvc "github.com/ivanchenka/lumo/internal/services/conversations"
)

type staticConversationStore struct {
	records []pgrepo.ConversationRecord
}

func (s staticConversationStore) ListForViewer(_ context.Context, _ pgrepo.ConversationQuery) ([]pgrepo.ConversationRecord, error) {
	return s.records, nil
}

func TestConversationsHandlerDerivesCategories(t *testing.T) {
	like := "LIKE"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := convsvc.NewService(convsvc.Dependencies{Store: staticConversationStore{records: []pgrepo.ConversationRecord{
		{PeerUserID: 2, DisplayName: "Alena", Outbound: &like, Inbound: &like, LastActivity: now},
		{PeerUserID: 3, DisplayName: "Vera", Inbound: &like, LastActivity: now.Add(-time.Hour)},
	}}})
	h := NewConversationsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 101}))
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Items []struct {
			PeerUserID int64  `json:"peer_user_id"`
			Category   string `json:"category"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(payload.Items))
	}
	if payload.Items[0].Category != "both" {
		t.Fatalf("unexpected first category: %q", payload.Items[0].Category)
	}
	if payload.Items[1].Category != "they" {
		t.Fatalf("unexpected second category: %q", payload.Items[1].Category)
	}
}

func TestConversationsHandlerRejectsUnknownCategory(t *testing.T) {
	svc := convsvc.NewService(convsvc.Dependencies{Store: staticConversationStore{}})
	h := NewConversationsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/conversations?category=mutual", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 101}))
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}
