package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

type ConversationQuery struct {
	ViewerUserID int64
	// Category filters by the derived pair category; empty means all peers
	// with any swipe relation.
	Category string
	Limit    int
	Offset   int
}

// ConversationRecord is one peer row: both directed decisions plus the last
// message summary. The category itself is derived by the service from the
// two decisions, not here.
type ConversationRecord struct {
	PeerUserID    int64
	DisplayName   string
	AvatarKey     string
	Outbound      *string
	Inbound       *string
	MsgContent    *string
	MsgType       *string
	MsgSenderID   *int64
	MsgSentAt     *time.Time
	LastActivity  time.Time
}

// ListForViewer walks every peer the viewer shares a swipe edge with,
// annotates each with both decisions and the freshest message, and orders
// by last activity descending. Blocked or reported pairs never surface.
func (r *ConversationRepo) ListForViewer(ctx context.Context, q ConversationQuery) ([]ConversationRecord, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if r.pool == nil {
		return []ConversationRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
WITH peers AS (
	SELECT DISTINCT CASE WHEN s.swiper_id = $1 THEN s.receiver_id ELSE s.swiper_id END AS peer_id
	FROM swipes s
	WHERE s.swiper_id = $1 OR s.receiver_id = $1
)
SELECT
	p.user_id,
	p.display_name,
	COALESCE(p.avatar_key, ''),
	so.decision AS outbound,
	si.decision AS inbound,
	m.content,
	m.msg_type,
	m.sender_id,
	m.sent_at,
	GREATEST(
		COALESCE(m.sent_at, 'epoch'::timestamptz),
		COALESCE(so.updated_at, 'epoch'::timestamptz),
		COALESCE(si.updated_at, 'epoch'::timestamptz)
	) AS last_activity
FROM peers
JOIN profiles p ON p.user_id = peers.peer_id
LEFT JOIN swipes so ON so.swiper_id = $1 AND so.receiver_id = p.user_id
LEFT JOIN swipes si ON si.swiper_id = p.user_id AND si.receiver_id = $1
LEFT JOIN LATERAL (
	SELECT msg.content, msg.msg_type, msg.sender_id, msg.sent_at
	FROM messages msg
	WHERE (msg.sender_id = $1 AND msg.recipient_id = p.user_id)
		OR (msg.sender_id = p.user_id AND msg.recipient_id = $1)
	ORDER BY msg.sent_at DESC, msg.id DESC
	LIMIT 1
) m ON TRUE
WHERE
	p.active = TRUE
	AND NOT EXISTS (
		SELECT 1
		FROM blocks b
		WHERE (b.actor_user_id = $1 AND b.target_user_id = p.user_id)
			OR (b.actor_user_id = p.user_id AND b.target_user_id = $1)
	)
	AND NOT EXISTS (
		SELECT 1
		FROM reports rp
		WHERE (rp.reporter_user_id = $1 AND rp.target_user_id = p.user_id)
			OR (rp.reporter_user_id = p.user_id AND rp.target_user_id = $1)
	)
	AND (
		$2::text = ''
		OR (
			$2::text = 'both'
			AND so.decision = 'LIKE' AND si.decision = 'LIKE'
		)
		OR (
			$2::text = 'you'
			AND so.decision = 'LIKE' AND COALESCE(si.decision, '') <> 'LIKE'
		)
		OR (
			$2::text = 'they'
			AND si.decision = 'LIKE' AND COALESCE(so.decision, '') <> 'LIKE'
		)
		OR (
			$2::text = 'none'
			AND COALESCE(so.decision, '') <> 'LIKE' AND COALESCE(si.decision, '') <> 'LIKE'
		)
	)
ORDER BY last_activity DESC, p.user_id DESC
OFFSET $3
LIMIT $4
`, q.ViewerUserID, q.Category, q.Offset, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]ConversationRecord, 0, q.Limit)
	for rows.Next() {
		var rec ConversationRecord
		if err := rows.Scan(
			&rec.PeerUserID,
			&rec.DisplayName,
			&rec.AvatarKey,
			&rec.Outbound,
			&rec.Inbound,
			&rec.MsgContent,
			&rec.MsgType,
			&rec.MsgSenderID,
			&rec.MsgSentAt,
			&rec.LastActivity,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversations: %w", rows.Err())
	}

	return items, nil
}
