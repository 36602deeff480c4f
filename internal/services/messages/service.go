package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivanchenka/lumo/internal/domain/enums"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotMatched = errors.New("pair is not matched")
)

const maxContentLength = 4000

type MessageStore interface {
	Append(ctx context.Context, rec pgrepo.MessageRecord) (pgrepo.MessageRecord, error)
	Delete(ctx context.Context, messageID string, senderID int64) (bool, error)
	MarkRead(ctx context.Context, readerID, peerID int64, at time.Time) (int64, error)
}

type CategoryReader interface {
	DeriveCategory(ctx context.Context, userID, peerID int64) (enums.PairCategory, error)
}

// Service gates direct messages on the live pair state: only a mutual-like
// pair may exchange messages, and the check runs on every send because the
// match can dissolve at any moment.
type Service struct {
	store      MessageStore
	categories CategoryReader
	now        func() time.Time
	newID      func() string
}

type Dependencies struct {
	Store      MessageStore
	Categories CategoryReader
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:      deps.Store,
		categories: deps.Categories,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *Service) Send(ctx context.Context, senderID, recipientID int64, content, msgType string) (pgrepo.MessageRecord, error) {
	if senderID <= 0 || recipientID <= 0 || senderID == recipientID {
		return pgrepo.MessageRecord{}, ErrValidation
	}
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxContentLength {
		return pgrepo.MessageRecord{}, ErrValidation
	}
	if s.store == nil || s.categories == nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("message dependencies are not configured")
	}

	category, err := s.categories.DeriveCategory(ctx, senderID, recipientID)
	if err != nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("derive pair category: %w", err)
	}
	if category != enums.CategoryBoth {
		return pgrepo.MessageRecord{}, ErrNotMatched
	}

	rec, err := s.store.Append(ctx, pgrepo.MessageRecord{
		ID:          s.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		MsgType:     msgType,
		SentAt:      s.now().UTC(),
	})
	if err != nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("append message: %w", err)
	}

	return rec, nil
}

// MarkRead stamps the peer's unread messages to the reader as read and
// reports how many were affected. Zero is a valid outcome: everything
// was already read.
func (s *Service) MarkRead(ctx context.Context, readerID, peerID int64) (int64, error) {
	if readerID <= 0 || peerID <= 0 || readerID == peerID {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("message dependencies are not configured")
	}

	marked, err := s.store.MarkRead(ctx, readerID, peerID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return marked, nil
}

// Remove deletes the sender's own message; deleting an unknown or foreign
// message reports false without error.
func (s *Service) Remove(ctx context.Context, senderID int64, messageID string) (bool, error) {
	if senderID <= 0 || strings.TrimSpace(messageID) == "" {
		return false, ErrValidation
	}
	if s.store == nil {
		return false, fmt.Errorf("message dependencies are not configured")
	}

	removed, err := s.store.Delete(ctx, messageID, senderID)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}

	return removed, nil
}
