package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSwipeNotFound = errors.New("swipe not found")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type SwipeRecord struct {
	SwiperID   int64
	ReceiverID int64
	Decision   string
	UpdatedAt  time.Time
}

// PairDecisionsRecord carries both directed decisions for a pair; nil means
// no row in that direction.
type PairDecisionsRecord struct {
	Outbound *string
	Inbound  *string
}

// Upsert writes the at-most-one row per ordered (swiper, receiver) pair.
// A repeated swipe overwrites the decision and refreshes the timestamp.
func (r *SwipeRepo) Upsert(ctx context.Context, tx pgx.Tx, swiperID, receiverID int64, decision string, now time.Time) (SwipeRecord, error) {
	if swiperID <= 0 || receiverID <= 0 || strings.TrimSpace(decision) == "" {
		return SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec SwipeRecord
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	swiper_id,
	receiver_id,
	decision,
	updated_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (swiper_id, receiver_id) DO UPDATE SET
	decision = EXCLUDED.decision,
	updated_at = EXCLUDED.updated_at
RETURNING swiper_id, receiver_id, decision, updated_at
`, swiperID, receiverID, strings.ToUpper(strings.TrimSpace(decision)), now.UTC()).Scan(
		&rec.SwiperID,
		&rec.ReceiverID,
		&rec.Decision,
		&rec.UpdatedAt,
	)
	if err != nil {
		return SwipeRecord{}, fmt.Errorf("upsert swipe: %w", err)
	}

	return rec, nil
}

// Delete removes the directed row; reports whether a row existed.
func (r *SwipeRepo) Delete(ctx context.Context, swiperID, receiverID int64) (bool, error) {
	if swiperID <= 0 || receiverID <= 0 {
		return false, fmt.Errorf("invalid swipe delete payload")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM swipes
WHERE swiper_id = $1 AND receiver_id = $2
`, swiperID, receiverID)
	if err != nil {
		return false, fmt.Errorf("delete swipe: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// PairDecisions reads both directions of a pair in one round trip.
func (r *SwipeRepo) PairDecisions(ctx context.Context, userID, peerID int64) (PairDecisionsRecord, error) {
	if userID <= 0 || peerID <= 0 {
		return PairDecisionsRecord{}, fmt.Errorf("invalid pair lookup payload")
	}
	if r.pool == nil {
		return PairDecisionsRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT swiper_id, decision
FROM swipes
WHERE (swiper_id = $1 AND receiver_id = $2)
	OR (swiper_id = $2 AND receiver_id = $1)
`, userID, peerID)
	if err != nil {
		return PairDecisionsRecord{}, fmt.Errorf("read pair decisions: %w", err)
	}
	defer rows.Close()

	var rec PairDecisionsRecord
	for rows.Next() {
		var swiperID int64
		var decision string
		if err := rows.Scan(&swiperID, &decision); err != nil {
			return PairDecisionsRecord{}, fmt.Errorf("scan pair decision: %w", err)
		}
		value := decision
		if swiperID == userID {
			rec.Outbound = &value
		} else {
			rec.Inbound = &value
		}
	}

	if rows.Err() != nil {
		return PairDecisionsRecord{}, fmt.Errorf("iterate pair decisions: %w", rows.Err())
	}

	return rec, nil
}

// PairDecisionsTx is the transactional variant used to re-read both rows
// right after an upsert, so a freshly created mutual like is observed in
// the same snapshot as the write.
func (r *SwipeRepo) PairDecisionsTx(ctx context.Context, tx pgx.Tx, userID, peerID int64) (PairDecisionsRecord, error) {
	if userID <= 0 || peerID <= 0 {
		return PairDecisionsRecord{}, fmt.Errorf("invalid pair lookup payload")
	}
	if tx == nil {
		return PairDecisionsRecord{}, fmt.Errorf("transaction is required")
	}

	rows, err := tx.Query(ctx, `
SELECT swiper_id, decision
FROM swipes
WHERE (swiper_id = $1 AND receiver_id = $2)
	OR (swiper_id = $2 AND receiver_id = $1)
`, userID, peerID)
	if err != nil {
		return PairDecisionsRecord{}, fmt.Errorf("read pair decisions: %w", err)
	}
	defer rows.Close()

	var rec PairDecisionsRecord
	for rows.Next() {
		var swiperID int64
		var decision string
		if err := rows.Scan(&swiperID, &decision); err != nil {
			return PairDecisionsRecord{}, fmt.Errorf("scan pair decision: %w", err)
		}
		value := decision
		if swiperID == userID {
			rec.Outbound = &value
		} else {
			rec.Inbound = &value
		}
	}

	if rows.Err() != nil {
		return PairDecisionsRecord{}, fmt.Errorf("iterate pair decisions: %w", rows.Err())
	}

	return rec, nil
}
