package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"

	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
	redrepo "github.com/ivanchenka/lumo/internal/repo/redis"
	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	ratesvc "github.com/ivanchenka/lumo/internal/services/rate"
	swipesvc "github.com/ivanchenka/lumo/internal/services/swipes"
)

type noopSwipeStore struct{}

func (noopSwipeStore) Upsert(_ context.Context, _ pgx.Tx, swiperID, receiverID int64, decision string, now time.Time) (pgrepo.SwipeRecord, error) {
	return pgrepo.SwipeRecord{SwiperID: swiperID, ReceiverID: receiverID, Decision: decision, UpdatedAt: now}, nil
}

func (noopSwipeStore) Delete(_ context.Context, _, _ int64) (bool, error) {
	return false, nil
}

func (noopSwipeStore) PairDecisions(_ context.Context, _, _ int64) (pgrepo.PairDecisionsRecord, error) {
	return pgrepo.PairDecisionsRecord{}, nil
}

func (noopSwipeStore) PairDecisionsTx(_ context.Context, _ pgx.Tx, _, _ int64) (pgrepo.PairDecisionsRecord, error) {
	return pgrepo.PairDecisionsRecord{}, nil
}

type openExclusions struct{}

func (openExclusions) ExistsBetween(_ context.Context, _, _ int64) (bool, error) {
	return false, nil
}

func TestSwipeHandlerReturnsTooFastOnThirdSwipeBurst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	rateRepo := redrepo.NewRateRepo(redisClient)
	rateLimiter := ratesvc.NewLimiter(rateRepo, 100, 2)

	svc := swipesvc.NewService(swipesvc.Dependencies{
		SwipeStore:  noopSwipeStore{},
		Exclusions:  openExclusions{},
		RateLimiter: rateLimiter,
	})

	h := NewSwipeHandler(svc)

	for i := 0; i < 2; i++ {
		_ = performSwipeRequest(t, h, 1000+int64(i), "LIKE").Code
	}

	resp := performSwipeRequest(t, h, 1002, "LIKE")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status on third swipe: got %d want %d", resp.Code, http.StatusTooManyRequests)
	}

	var payload struct {
		Code          string `json:"code"`
		Message       string `json:"message"`
		RetryAfterSec int64  `json:"retry_after_sec"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload.Code != "TOO_FAST" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "TOO_FAST")
	}
	if payload.RetryAfterSec <= 0 {
		t.Fatalf("expected positive retry_after_sec, got %d", payload.RetryAfterSec)
	}
}

func TestSwipeHandlerRequiresAuth(t *testing.T) {
	h := NewSwipeHandler(nil)

	body := bytes.NewReader([]byte(`{"receiver_id":2,"decision":"LIKE"}`))
	req := httptest.NewRequest(http.MethodPost, "/swipes", body)
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSwipeHandlerRejectsBadBody(t *testing.T) {
	svc := swipesvc.NewService(swipesvc.Dependencies{
		SwipeStore: noopSwipeStore{},
		Exclusions: openExclusions{},
	})
	h := NewSwipeHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/swipes", bytes.NewReader([]byte(`{"receiver_id":0}`)))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 101}))
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func performSwipeRequest(t *testing.T, h *SwipeHandler, receiverID int64, decision string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"receiver_id": receiverID,
		"decision":    decision,
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/swipes", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 101}))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}
