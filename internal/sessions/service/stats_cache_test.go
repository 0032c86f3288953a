package service

import (
	"context"
	"testing"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestStatsCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, ttl, logger.New("test")), mr
}

func TestStatsCacheRoundTrip(t *testing.T) {
	cache, _ := newTestStatsCache(t, time.Minute)
	ctx := context.Background()

	sessionID := uuid.New()
	stats := domain.QueueStats{
		SessionID:  sessionID,
		Queued:     10,
		InProgress: 2,
		Completed:  5,
		Failed:     1,
		AsOf:       time.Now().UTC().Truncate(time.Second),
	}

	if _, ok := cache.Get(ctx, sessionID); ok {
		t.Fatalf("expected miss before set")
	}

	cache.Set(ctx, stats)

	got, ok := cache.Get(ctx, sessionID)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if got.Queued != 10 || got.Completed != 5 || got.SessionID != sessionID {
		t.Fatalf("unexpected cached stats %+v", got)
	}
}

func TestStatsCacheExpires(t *testing.T) {
	cache, mr := newTestStatsCache(t, time.Second)
	ctx := context.Background()

	sessionID := uuid.New()
	cache.Set(ctx, domain.QueueStats{SessionID: sessionID, Queued: 1})

	mr.FastForward(2 * time.Second)

	if _, ok := cache.Get(ctx, sessionID); ok {
		t.Fatalf("expected miss after TTL")
	}
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache, _ := newTestStatsCache(t, time.Minute)
	ctx := context.Background()

	sessionID := uuid.New()
	cache.Set(ctx, domain.QueueStats{SessionID: sessionID, Queued: 1})
	cache.Invalidate(ctx, sessionID)

	if _, ok := cache.Get(ctx, sessionID); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestStatsCacheNilClientAlwaysMisses(t *testing.T) {
	cache := NewStatsCache(nil, time.Minute, logger.New("test"))
	ctx := context.Background()

	sessionID := uuid.New()
	cache.Set(ctx, domain.QueueStats{SessionID: sessionID, Queued: 1})
	if _, ok := cache.Get(ctx, sessionID); ok {
		t.Fatalf("nil client must behave as a permanent miss")
	}
}
