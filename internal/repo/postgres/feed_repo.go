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

var ErrFeedViewerNotFound = errors.New("feed viewer profile not found")

type FeedRepo struct {
	pool *pgxpool.Pool
}

func NewFeedRepo(pool *pgxpool.Pool) *FeedRepo {
	return &FeedRepo{pool: pool}
}

type FeedViewerContext struct {
	UserID           int64
	PreferredGenders []string
	AgeMin           int
	AgeMax           int
	RadiusKM         int
	Lat              *float64
	Lon              *float64
	Active           bool
	Onboarded        bool
}

type FeedQuery struct {
	ViewerUserID     int64
	PreferredGenders []string
	AgeMin           int
	AgeMax           int
	RadiusKM         int
	ViewerLat        *float64
	ViewerLon        *float64
	Limit            int
	Offset           int
	Now              time.Time
}

type FeedCandidate struct {
	UserID          int64
	DisplayName     string
	AvatarKey       string
	Birthdate       time.Time
	Lat             *float64
	Lon             *float64
	SharedInterests int
}

func (r *FeedRepo) GetViewerContext(ctx context.Context, userID int64) (FeedViewerContext, error) {
	if userID <= 0 {
		return FeedViewerContext{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return FeedViewerContext{}, ErrFeedViewerNotFound
	}

	var viewer FeedViewerContext
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	COALESCE(preferred_genders, '{}'),
	pref_age_min,
	pref_age_max,
	pref_radius_km,
	lat,
	lon,
	active,
	onboarded
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&viewer.UserID,
		&viewer.PreferredGenders,
		&viewer.AgeMin,
		&viewer.AgeMax,
		&viewer.RadiusKM,
		&viewer.Lat,
		&viewer.Lon,
		&viewer.Active,
		&viewer.Onboarded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FeedViewerContext{}, ErrFeedViewerNotFound
		}
		return FeedViewerContext{}, fmt.Errorf("get feed viewer context: %w", err)
	}

	return viewer, nil
}

// ListCandidates applies every eligibility rule and the full ranking order
// in one query, so OFFSET pagination walks a single deterministic total
// order for a fixed ledger snapshot. Ranking: shared interests desc,
// distance asc (unknown distance counts as zero), user id asc as the
// stable final tiebreak.
func (r *FeedRepo) ListCandidates(ctx context.Context, q FeedQuery) ([]FeedCandidate, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	if r.pool == nil {
		return []FeedCandidate{}, nil
	}

	genders := normalizeGenders(q.PreferredGenders)
	applyGenders := len(genders) > 0
	applyRadius := q.ViewerLat != nil && q.ViewerLon != nil && q.RadiusKM > 0

	rows, err := r.pool.Query(ctx, `
SELECT
	c.user_id,
	c.display_name,
	c.avatar_key,
	c.birthdate,
	c.lat,
	c.lon,
	c.shared_interests
FROM (
	SELECT
		p.user_id,
		p.display_name,
		COALESCE(p.avatar_key, '') AS avatar_key,
		p.birthdate,
		p.lat,
		p.lon,
		COALESCE(si.shared, 0) AS shared_interests,
		CASE
			WHEN $7::boolean = TRUE AND p.lat IS NOT NULL AND p.lon IS NOT NULL
			THEN 6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
				COS(RADIANS($8::float8)) * COS(RADIANS(p.lat)) * COS(RADIANS(p.lon) - RADIANS($9::float8))
				+ SIN(RADIANS($8::float8)) * SIN(RADIANS(p.lat))
			)))
			ELSE NULL
		END AS distance_km
	FROM profiles p
	LEFT JOIN LATERAL (
		SELECT COUNT(*)::int AS shared
		FROM user_interests ci
		JOIN user_interests vi ON vi.interest_id = ci.interest_id AND vi.user_id = $1
		WHERE ci.user_id = p.user_id
	) si ON TRUE
	WHERE
		p.user_id <> $1
		AND p.active = TRUE
		AND p.onboarded = TRUE
		AND p.birthdate IS NOT NULL
		AND ($3::boolean = FALSE OR LOWER(p.gender) = ANY($4::text[]))
		AND DATE_PART('year', AGE($2::timestamptz, p.birthdate::timestamp))::int BETWEEN $5 AND $6
		AND (
			$7::boolean = FALSE
			OR p.lat IS NULL
			OR p.lon IS NULL
			OR (
				6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
					COS(RADIANS($8::float8)) * COS(RADIANS(p.lat)) * COS(RADIANS(p.lon) - RADIANS($9::float8))
					+ SIN(RADIANS($8::float8)) * SIN(RADIANS(p.lat))
				)))
			) <= $10::float8
		)
		AND NOT EXISTS (
			SELECT 1
			FROM swipes s
			WHERE s.swiper_id = $1 AND s.receiver_id = p.user_id
		)
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
) c
ORDER BY c.shared_interests DESC, COALESCE(c.distance_km, 0) ASC, c.user_id ASC
OFFSET $11
LIMIT $12
`,
		q.ViewerUserID,           // $1
		q.Now.UTC(),              // $2
		applyGenders,             // $3
		genders,                  // $4
		q.AgeMin,                 // $5
		q.AgeMax,                 // $6
		applyRadius,              // $7
		floatOrZero(q.ViewerLat), // $8
		floatOrZero(q.ViewerLon), // $9
		float64(q.RadiusKM),      // $10
		q.Offset,                 // $11
		q.Limit,                  // $12
	)
	if err != nil {
		return nil, fmt.Errorf("list feed candidates: %w", err)
	}
	defer rows.Close()

	items := make([]FeedCandidate, 0, q.Limit)
	for rows.Next() {
		var item FeedCandidate
		if err := rows.Scan(
			&item.UserID,
			&item.DisplayName,
			&item.AvatarKey,
			&item.Birthdate,
			&item.Lat,
			&item.Lon,
			&item.SharedInterests,
		); err != nil {
			return nil, fmt.Errorf("scan feed candidate: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate feed candidates: %w", rows.Err())
	}

	return items, nil
}

func normalizeGenders(genders []string) []string {
	if len(genders) == 0 {
		return nil
	}

	out := make([]string, 0, len(genders))
	seen := make(map[string]struct{}, len(genders))
	for _, gender := range genders {
		value := strings.ToLower(strings.TrimSpace(gender))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func floatOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
