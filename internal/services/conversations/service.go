package conversations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivanchenka/lumo/internal/domain/enums"
	"github.com/ivanchenka/lumo/internal/domain/model"
	"github.com/ivanchenka/lumo/internal/domain/rules"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

const (
	minLimit = 1
	maxLimit = 50
)

type ConversationStore interface {
	ListForViewer(ctx context.Context, q pgrepo.ConversationQuery) ([]pgrepo.ConversationRecord, error)
}

type AvatarPresigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	DefaultLimit int
	AvatarTTL    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 || c.DefaultLimit > maxLimit {
		c.DefaultLimit = 20
	}
	if c.AvatarTTL <= 0 {
		c.AvatarTTL = 15 * time.Minute
	}
	return c
}

type Service struct {
	store     ConversationStore
	presigner AvatarPresigner
	cfg       Config
}

type Dependencies struct {
	Store     ConversationStore
	Presigner AvatarPresigner
	Config    Config
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:     deps.Store,
		presigner: deps.Presigner,
		cfg:       deps.Config.withDefaults(),
	}
}

// ListConversations returns one page of the viewer's peers ordered by last
// activity descending. The category filter accepts the four pair states or
// empty for all; anything else is a validation error. Each returned row
// carries the category re-derived from the two directed decisions, so the
// filter and the reported value can never disagree.
func (s *Service) ListConversations(ctx context.Context, viewerID int64, category string, limit, offset int) ([]model.Conversation, error) {
	if viewerID <= 0 {
		return nil, ErrValidation
	}
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < minLimit || limit > maxLimit {
		return nil, ErrValidation
	}
	if offset < 0 {
		return nil, ErrValidation
	}

	normalized := ""
	if category != "" {
		parsed, ok := rules.ParseCategory(category)
		if !ok {
			return nil, ErrValidation
		}
		normalized = string(parsed)
	}

	if s.store == nil {
		return nil, fmt.Errorf("conversation dependencies are not configured")
	}

	records, err := s.store.ListForViewer(ctx, pgrepo.ConversationQuery{
		ViewerUserID: viewerID,
		Category:     normalized,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	items := make([]model.Conversation, 0, len(records))
	for _, rec := range records {
		conv := model.Conversation{
			PeerUserID:     rec.PeerUserID,
			DisplayName:    rec.DisplayName,
			Category:       categoryOf(rec),
			LastActivityAt: rec.LastActivity,
		}

		if rec.MsgContent != nil && rec.MsgSentAt != nil && rec.MsgSenderID != nil {
			msgType := "text"
			if rec.MsgType != nil && *rec.MsgType != "" {
				msgType = *rec.MsgType
			}
			conv.LastMessage = &model.MessageSummary{
				Content:      *rec.MsgContent,
				Type:         msgType,
				SenderUserID: *rec.MsgSenderID,
				SentAt:       *rec.MsgSentAt,
			}
		}

		if s.presigner != nil && rec.AvatarKey != "" {
			url, err := s.presigner.PresignGet(ctx, rec.AvatarKey, s.cfg.AvatarTTL)
			if err == nil && url != "" {
				conv.AvatarURL = &url
			}
		}

		items = append(items, conv)
	}

	return items, nil
}

func categoryOf(rec pgrepo.ConversationRecord) enums.PairCategory {
	return rules.PairCategory(parseDecision(rec.Outbound), parseDecision(rec.Inbound))
}

func parseDecision(raw *string) *enums.SwipeDecision {
	if raw == nil {
		return nil
	}
	parsed, err := rules.ParseDecision(*raw)
	if err != nil {
		return nil
	}
	return &parsed
}
