package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ExclusionRepo reads the block and report relations owned by the trust &
// safety subsystem. Both are consumed here only as symmetric exclusion
// predicates.
type ExclusionRepo struct {
	pool *pgxpool.Pool
}

func NewExclusionRepo(pool *pgxpool.Pool) *ExclusionRepo {
	return &ExclusionRepo{pool: pool}
}

// ExistsBetween reports whether a block or report exists between the two
// users in either direction.
func (r *ExclusionRepo) ExistsBetween(ctx context.Context, userID, peerID int64) (bool, error) {
	if userID <= 0 || peerID <= 0 {
		return false, fmt.Errorf("invalid exclusion lookup payload")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM blocks b
	WHERE (b.actor_user_id = $1 AND b.target_user_id = $2)
		OR (b.actor_user_id = $2 AND b.target_user_id = $1)
) OR EXISTS (
	SELECT 1
	FROM reports rp
	WHERE (rp.reporter_user_id = $1 AND rp.target_user_id = $2)
		OR (rp.reporter_user_id = $2 AND rp.target_user_id = $1)
)
`, userID, peerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup exclusion pair: %w", err)
	}

	return exists, nil
}
