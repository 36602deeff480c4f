package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

type MessageRecord struct {
	ID          string
	SenderID    int64
	RecipientID int64
	Content     string
	MsgType     string
	SentAt      time.Time
}

func (r *MessageRepo) Append(ctx context.Context, rec MessageRecord) (MessageRecord, error) {
	if strings.TrimSpace(rec.ID) == "" || rec.SenderID <= 0 || rec.RecipientID <= 0 {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}
	if r.pool == nil {
		return MessageRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	if strings.TrimSpace(rec.MsgType) == "" {
		rec.MsgType = "text"
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (
	id,
	sender_id,
	recipient_id,
	content,
	msg_type,
	sent_at
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, sender_id, recipient_id, content, msg_type, sent_at
`, rec.ID, rec.SenderID, rec.RecipientID, rec.Content, rec.MsgType, rec.SentAt.UTC()).Scan(
		&rec.ID,
		&rec.SenderID,
		&rec.RecipientID,
		&rec.Content,
		&rec.MsgType,
		&rec.SentAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("append message: %w", err)
	}

	return rec, nil
}

// MarkRead stamps every unread message sent by peerID to readerID and
// reports how many rows were affected.
func (r *MessageRepo) MarkRead(ctx context.Context, readerID, peerID int64, at time.Time) (int64, error) {
	if readerID <= 0 || peerID <= 0 {
		return 0, fmt.Errorf("invalid mark read payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET read_at = $3
WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL
`, readerID, peerID, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return result.RowsAffected(), nil
}

// Delete removes a message owned by senderID; reports whether a row existed.
func (r *MessageRepo) Delete(ctx context.Context, messageID string, senderID int64) (bool, error) {
	if strings.TrimSpace(messageID) == "" || senderID <= 0 {
		return false, fmt.Errorf("invalid message delete payload")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM messages
WHERE id = $1 AND sender_id = $2
`, messageID, senderID)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
