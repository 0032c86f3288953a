package service

import (
	"context"
	"encoding/json"
	"time"

	"dialcrm_backend/internal/dialer/domain"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StatsCache is a short-TTL read-through cache for queue stats. The
// predictive dialer UI polls stats aggressively; the cache keeps that off
// the queue table. A nil client disables caching entirely.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewStatsCache creates a stats cache. client may be nil when Redis is not
// configured.
func NewStatsCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &StatsCache{client: client, ttl: ttl, log: log}
}

func statsKey(sessionID uuid.UUID) string {
	return "dialer:stats:" + sessionID.String()
}

// Get returns cached stats for the session, or false on miss. Redis errors
// count as a miss.
func (c *StatsCache) Get(ctx context.Context, sessionID uuid.UUID) (domain.QueueStats, bool) {
	if c.client == nil {
		return domain.QueueStats{}, false
	}

	raw, err := c.client.Get(ctx, statsKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("stats cache read failed", "sessionId", sessionID, "error", err)
		}
		return domain.QueueStats{}, false
	}

	var stats domain.QueueStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.QueueStats{}, false
	}
	return stats, true
}

// Set stores stats under the session key with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats domain.QueueStats) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(stats.SessionID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("stats cache write failed", "sessionId", stats.SessionID, "error", err)
	}
}

// Invalidate drops the cached stats for a session, used after bulk enqueues
// and resets so the UI does not see stale counts for a full TTL.
func (c *StatsCache) Invalidate(ctx context.Context, sessionID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey(sessionID)).Err(); err != nil {
		c.log.Warn("stats cache invalidate failed", "sessionId", sessionID, "error", err)
	}
}
