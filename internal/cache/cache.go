package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const unreadTTL = 30 * time.Second

// Cache holds the per-user unread badge count. Postgres stays authoritative;
// entries are short-lived and dropped on every send and mark-read.
type Cache struct {
	Client *redis.Client
}

func New(addr string) *Cache {
	return &Cache{
		Client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func unreadKey(userID string) string {
	return "unread:" + userID
}

func (c *Cache) GetUnreadCount(ctx context.Context, userID string) (int64, bool) {
	val, err := c.Client.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Cache) SetUnreadCount(ctx context.Context, userID string, n int64) error {
	return c.Client.Set(ctx, unreadKey(userID), n, unreadTTL).Err()
}

func (c *Cache) InvalidateUnreadCount(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, unreadKey(userID)).Err()
}
