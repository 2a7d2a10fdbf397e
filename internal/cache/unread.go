package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"go.uber.org/zap"
)

const unreadCacheName = "unread"

// DefaultUnreadTTL bounds how stale a count can get if an invalidation is lost
const DefaultUnreadTTL = 5 * time.Minute

// UnreadCache caches per-community unread notification counts in Redis.
// A nil *UnreadCache is valid and caches nothing. Redis errors degrade to
// cache misses.
type UnreadCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewUnreadCache creates an unread count cache
func NewUnreadCache(redis *RedisClient, ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = DefaultUnreadTTL
	}
	return &UnreadCache{redis: redis, ttl: ttl}
}

// UnreadKey is the Redis key for one inbox
func UnreadKey(communityID, userID string) string {
	return fmt.Sprintf("unread:%s:%s", communityID, userID)
}

func (c *UnreadCache) GetUnread(ctx context.Context, communityID, recipientID string) (int64, bool) {
	if c == nil || c.redis == nil {
		return 0, false
	}
	count, ok, err := c.redis.GetInt(ctx, UnreadKey(communityID, recipientID))
	if err != nil {
		logger.Log.Debug("Unread cache read failed", zap.Error(err))
	}
	if !ok {
		metrics.Get().CacheMissesTotal.WithLabelValues(unreadCacheName).Inc()
		return 0, false
	}
	metrics.Get().CacheHitsTotal.WithLabelValues(unreadCacheName).Inc()
	return count, true
}

func (c *UnreadCache) SetUnread(ctx context.Context, communityID, recipientID string, count int64) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.SetEx(ctx, UnreadKey(communityID, recipientID), count, c.ttl); err != nil {
		logger.Log.Debug("Unread cache write failed", zap.Error(err))
	}
}

// InvalidateUnread drops the cached counts of userIDs in a community
func (c *UnreadCache) InvalidateUnread(ctx context.Context, communityID string, userIDs ...string) {
	if c == nil || c.redis == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = UnreadKey(communityID, id)
	}
	if err := c.redis.Del(ctx, keys...); err != nil {
		logger.Log.Warn("Unread cache invalidation failed",
			logger.WithCommunityID(communityID),
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
	}
}
