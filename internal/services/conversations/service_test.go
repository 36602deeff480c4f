package conversations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivanchenka/lumo/internal/domain/enums"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
)

type stubConversationStore struct {
	records   []pgrepo.ConversationRecord
	lastQuery pgrepo.ConversationQuery
	err       error
}

func (s *stubConversationStore) ListForViewer(_ context.Context, q pgrepo.ConversationQuery) ([]pgrepo.ConversationRecord, error) {
	s.lastQuery = q
	return s.records, s.err
}

type stubPresigner struct {
	urls map[string]string
}

func (s *stubPresigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.urls[key], nil
}

func newTestService(store ConversationStore, presigner AvatarPresigner) *Service {
	return NewService(Dependencies{Store: store, Presigner: presigner})
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestListConversationsRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(&stubConversationStore{}, nil)

	_, err := svc.ListConversations(context.Background(), 1, "mutual", 10, 0)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on unknown category, got %v", err)
	}
}

func TestListConversationsRejectsBadBounds(t *testing.T) {
	svc := newTestService(&stubConversationStore{}, nil)
	ctx := context.Background()

	if _, err := svc.ListConversations(ctx, 1, "", 51, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on limit above cap, got %v", err)
	}
	if _, err := svc.ListConversations(ctx, 1, "", 10, -1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on negative offset, got %v", err)
	}
	if _, err := svc.ListConversations(ctx, 0, "", 10, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on zero viewer, got %v", err)
	}
}

func TestListConversationsPassesNormalizedFilter(t *testing.T) {
	store := &stubConversationStore{}
	svc := newTestService(store, nil)

	if _, err := svc.ListConversations(context.Background(), 1, "both", 10, 20); err != nil {
		t.Fatalf("list conversations: %v", err)
	}

	if store.lastQuery.Category != "both" {
		t.Fatalf("unexpected category filter: %q", store.lastQuery.Category)
	}
	if store.lastQuery.Limit != 10 || store.lastQuery.Offset != 20 {
		t.Fatalf("pagination not propagated: %+v", store.lastQuery)
	}
}

func TestListConversationsDerivesCategoryPerRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubConversationStore{records: []pgrepo.ConversationRecord{
		{PeerUserID: 2, DisplayName: "Alena", Outbound: strPtr("LIKE"), Inbound: strPtr("LIKE"), LastActivity: now},
		{PeerUserID: 3, DisplayName: "Vera", Outbound: strPtr("LIKE"), LastActivity: now.Add(-time.Hour)},
		{PeerUserID: 4, DisplayName: "Olga", Inbound: strPtr("LIKE"), LastActivity: now.Add(-2 * time.Hour)},
		{PeerUserID: 5, DisplayName: "Nina", Outbound: strPtr("DISLIKE"), LastActivity: now.Add(-3 * time.Hour)},
	}}
	svc := newTestService(store, nil)

	items, err := svc.ListConversations(context.Background(), 1, "", 10, 0)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 conversations, got %d", len(items))
	}

	want := []enums.PairCategory{
		enums.CategoryBoth,
		enums.CategoryYou,
		enums.CategoryThey,
		enums.CategoryNone,
	}
	for i, category := range want {
		if items[i].Category != category {
			t.Fatalf("row %d: unexpected category %s, want %s", i, items[i].Category, category)
		}
	}
}

func TestListConversationsMapsLastMessage(t *testing.T) {
	sentAt := time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC)
	store := &stubConversationStore{records: []pgrepo.ConversationRecord{
		{
			PeerUserID:   2,
			DisplayName:  "Alena",
			AvatarKey:    "avatars/2.jpg",
			Outbound:     strPtr("LIKE"),
			Inbound:      strPtr("LIKE"),
			MsgContent:   strPtr("privet"),
			MsgSenderID:  int64Ptr(2),
			MsgSentAt:    timePtr(sentAt),
			LastActivity: sentAt,
		},
		{PeerUserID: 3, DisplayName: "Vera", Outbound: strPtr("LIKE"), LastActivity: sentAt.Add(-time.Hour)},
	}}
	presigner := &stubPresigner{urls: map[string]string{
		"avatars/2.jpg": "https://cdn.example.com/avatars/2.jpg?sig=abc",
	}}
	svc := newTestService(store, presigner)

	items, err := svc.ListConversations(context.Background(), 1, "", 10, 0)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}

	first := items[0]
	if first.LastMessage == nil {
		t.Fatalf("expected last message on first conversation")
	}
	if first.LastMessage.Content != "privet" || first.LastMessage.SenderUserID != 2 {
		t.Fatalf("unexpected last message: %+v", first.LastMessage)
	}
	if first.LastMessage.Type != "text" {
		t.Fatalf("expected default message type text, got %s", first.LastMessage.Type)
	}
	if !first.LastMessage.SentAt.Equal(sentAt) {
		t.Fatalf("unexpected sent_at: %s", first.LastMessage.SentAt)
	}
	if first.AvatarURL == nil {
		t.Fatalf("expected presigned avatar url")
	}

	if items[1].LastMessage != nil {
		t.Fatalf("expected nil last message on messageless conversation")
	}
}
