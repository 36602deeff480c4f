package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ivanchenka/lumo/internal/domain/rules"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

const (
	minLimit = 1
	maxLimit = 50
)

type CandidateStore interface {
	GetViewerContext(ctx context.Context, userID int64) (pgrepo.FeedViewerContext, error)
	ListCandidates(ctx context.Context, q pgrepo.FeedQuery) ([]pgrepo.FeedCandidate, error)
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
	candidates CandidateStore
	presigner  AvatarPresigner
	cfg        Config
	now        func() time.Time
}

type Dependencies struct {
	Candidates CandidateStore
	Presigner  AvatarPresigner
	Config     Config
}

func NewService(deps Dependencies) *Service {
	return &Service{
		candidates: deps.Candidates,
		presigner:  deps.Presigner,
		cfg:        deps.Config.withDefaults(),
		now:        time.Now,
	}
}

type Candidate struct {
	UserID          int64
	DisplayName     string
	AvatarURL       *string
	Age             int
	SharedInterests int
	DistanceKM      *float64
}

type Page struct {
	Items  []Candidate
	Limit  int
	Offset int
}

// GetFeed returns one ranked page of candidates for the viewer. Limit zero
// means the configured default; out-of-range limit or negative offset is a
// validation error rather than a silent clamp. A viewer that is inactive
// or not yet onboarded gets an empty page, not an error.
func (s *Service) GetFeed(ctx context.Context, viewerID int64, limit, offset int) (Page, error) {
	if viewerID <= 0 {
		return Page{}, ErrValidation
	}
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < minLimit || limit > maxLimit {
		return Page{}, ErrValidation
	}
	if offset < 0 {
		return Page{}, ErrValidation
	}
	if s.candidates == nil {
		return Page{}, fmt.Errorf("feed dependencies are not configured")
	}

	viewer, err := s.candidates.GetViewerContext(ctx, viewerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrFeedViewerNotFound) {
			return Page{Items: []Candidate{}, Limit: limit, Offset: offset}, nil
		}
		return Page{}, fmt.Errorf("load viewer context: %w", err)
	}

	if !viewer.Active || !viewer.Onboarded {
		return Page{Items: []Candidate{}, Limit: limit, Offset: offset}, nil
	}

	now := s.now().UTC()
	records, err := s.candidates.ListCandidates(ctx, pgrepo.FeedQuery{
		ViewerUserID:     viewer.UserID,
		PreferredGenders: viewer.PreferredGenders,
		AgeMin:           viewer.AgeMin,
		AgeMax:           viewer.AgeMax,
		RadiusKM:         viewer.RadiusKM,
		ViewerLat:        viewer.Lat,
		ViewerLon:        viewer.Lon,
		Limit:            limit,
		Offset:           offset,
		Now:              now,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list feed candidates: %w", err)
	}

	items := make([]Candidate, 0, len(records))
	for _, rec := range records {
		item := Candidate{
			UserID:          rec.UserID,
			DisplayName:     rec.DisplayName,
			Age:             rules.AgeAt(rec.Birthdate, now),
			SharedInterests: rec.SharedInterests,
		}
		if viewer.Lat != nil && viewer.Lon != nil && rec.Lat != nil && rec.Lon != nil {
			d := rules.HaversineKM(*viewer.Lat, *viewer.Lon, *rec.Lat, *rec.Lon)
			item.DistanceKM = &d
		}
		if s.presigner != nil && rec.AvatarKey != "" {
			url, err := s.presigner.PresignGet(ctx, rec.AvatarKey, s.cfg.AvatarTTL)
			if err == nil && url != "" {
				item.AvatarURL = &url
			}
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool { return rankLess(items[i], items[j]) })

	return Page{Items: items, Limit: limit, Offset: offset}, nil
}

// rankLess is the canonical candidate order: more shared interests
// first, then nearer (unknown distance counts as zero), then lower user
// id. The store query walks the same order; re-applying it here keeps
// every returned page ranked even if the store does not.
func rankLess(a, b Candidate) bool {
	if a.SharedInterests != b.SharedInterests {
		return a.SharedInterests > b.SharedInterests
	}
	da, db := distanceOrZero(a.DistanceKM), distanceOrZero(b.DistanceKM)
	if da != db {
		return da < db
	}
	return a.UserID < b.UserID
}

func distanceOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
