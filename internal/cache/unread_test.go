package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNilUnreadCacheIsNoop(t *testing.T) {
	var c *UnreadCache
	ctx := context.Background()

	_, ok := c.GetUnread(ctx, "community-1", "user-1")
	assert.False(t, ok)
	c.SetUnread(ctx, "community-1", "user-1", 3)
	c.InvalidateUnread(ctx, "community-1", "user-1")

	assert.NoError(t, (*RedisClient)(nil).Close())
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewUnreadCache(NewRedisClientFrom(client), 0)
	defer func() { _ = c.redis.Close() }()
	ctx := context.Background()

	c.SetUnread(ctx, "community-1", "user-1", 3)
	_, ok := c.GetUnread(ctx, "community-1", "user-1")
	assert.False(t, ok)
	c.InvalidateUnread(ctx, "community-1", "user-1", "user-2")
	assert.Equal(t, DefaultUnreadTTL, c.ttl)
}

func TestUnreadKey(t *testing.T) {
	assert.Equal(t, "unread:c1:u1", UnreadKey("c1", "u1"))
}
