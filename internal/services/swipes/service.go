package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivanchenka/lumo/internal/domain/enums"
	"github.com/ivanchenka/lumo/internal/domain/rules"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidTarget = errors.New("invalid swipe target")
)

// TooFastError is returned when the per-user swipe rate limiter trips.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipe actions, retry after %ds", e.RetryAfterSec)
}

func IsTooFast(err error) (TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return tf, true
	}
	return TooFastError{}, false
}

type SwipeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, swiperID, receiverID int64, decision string, now time.Time) (pgrepo.SwipeRecord, error)
	Delete(ctx context.Context, swiperID, receiverID int64) (bool, error)
	PairDecisions(ctx context.Context, userID, peerID int64) (pgrepo.PairDecisionsRecord, error)
	PairDecisionsTx(ctx context.Context, tx pgx.Tx, userID, peerID int64) (pgrepo.PairDecisionsRecord, error)
}

type ExclusionStore interface {
	ExistsBetween(ctx context.Context, userID, peerID int64) (bool, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type Service struct {
	swipeStore  SwipeStore
	exclusions  ExclusionStore
	rateLimiter RateLimiter
	runTx       func(context.Context, func(context.Context, pgx.Tx) error) error
	now         func() time.Time
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	SwipeStore  SwipeStore
	Exclusions  ExclusionStore
	RateLimiter RateLimiter
}

// SwipeResult reports the recorded decision and the pair category observed
// by re-reading both rows inside the same transaction. Matched is a read
// outcome, not a created entity: the match exists only as long as both
// likes do.
type SwipeResult struct {
	Decision enums.SwipeDecision
	Category enums.PairCategory
	Matched  bool
}

func NewService(deps Dependencies) *Service {
	pool := deps.Pool

	return &Service{
		swipeStore:  deps.SwipeStore,
		exclusions:  deps.Exclusions,
		rateLimiter: deps.RateLimiter,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		now: time.Now,
	}
}

// RecordSwipe upserts the directed decision for (swiper, receiver).
// Re-swiping the same pair overwrites the previous decision; recording an
// identical decision twice is observably a no-op. A self-swipe or a swipe
// across a block/report pair is rejected with ErrInvalidTarget so callers
// can tell "disallowed" apart from "already recorded".
func (s *Service) RecordSwipe(ctx context.Context, swiperID, receiverID int64, decision string) (SwipeResult, error) {
	if swiperID <= 0 || receiverID <= 0 {
		return SwipeResult{}, ErrValidation
	}
	if swiperID == receiverID {
		return SwipeResult{}, ErrInvalidTarget
	}

	parsed, err := rules.ParseDecision(decision)
	if err != nil {
		return SwipeResult{}, ErrValidation
	}

	if s.swipeStore == nil || s.exclusions == nil {
		return SwipeResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	excluded, err := s.exclusions.ExistsBetween(ctx, swiperID, receiverID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("check exclusion pair: %w", err)
	}
	if excluded {
		return SwipeResult{}, ErrInvalidTarget
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, swiperID)
		if err != nil {
			return SwipeResult{}, fmt.Errorf("apply swipe rate limiter: %w", err)
		}
		if !allowed {
			return SwipeResult{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	now := s.now().UTC()

	var pair pgrepo.PairDecisionsRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.swipeStore.Upsert(txCtx, tx, swiperID, receiverID, string(parsed), now); err != nil {
			return err
		}
		rec, err := s.swipeStore.PairDecisionsTx(txCtx, tx, swiperID, receiverID)
		if err != nil {
			return err
		}
		pair = rec
		return nil
	}); err != nil {
		return SwipeResult{}, err
	}

	category := rules.PairCategory(decisionFromRecord(pair.Outbound), decisionFromRecord(pair.Inbound))

	return SwipeResult{
		Decision: parsed,
		Category: category,
		Matched:  category == enums.CategoryBoth,
	}, nil
}

// RemoveSwipe deletes the directed row if present; removing an absent row
// is a no-op, not an error. The receiver becomes eligible to reappear in
// the swiper's feed on the next read.
func (s *Service) RemoveSwipe(ctx context.Context, swiperID, receiverID int64) (bool, error) {
	if swiperID <= 0 || receiverID <= 0 {
		return false, ErrValidation
	}
	if swiperID == receiverID {
		return false, ErrInvalidTarget
	}
	if s.swipeStore == nil {
		return false, fmt.Errorf("swipe dependencies are not configured")
	}

	removed, err := s.swipeStore.Delete(ctx, swiperID, receiverID)
	if err != nil {
		return false, err
	}

	return removed, nil
}

// DeriveCategory classifies the pair from userID's perspective by reading
// both directed rows. The classification itself is a pure function over
// the two decisions.
func (s *Service) DeriveCategory(ctx context.Context, userID, peerID int64) (enums.PairCategory, error) {
	if userID <= 0 || peerID <= 0 {
		return "", ErrValidation
	}
	if userID == peerID {
		return "", ErrInvalidTarget
	}
	if s.swipeStore == nil {
		return "", fmt.Errorf("swipe dependencies are not configured")
	}

	pair, err := s.swipeStore.PairDecisions(ctx, userID, peerID)
	if err != nil {
		return "", err
	}

	return rules.PairCategory(decisionFromRecord(pair.Outbound), decisionFromRecord(pair.Inbound)), nil
}

func decisionFromRecord(raw *string) *enums.SwipeDecision {
	if raw == nil {
		return nil
	}
	parsed, err := rules.ParseDecision(*raw)
	if err != nil {
		return nil
	}
	return &parsed
}
