package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bvilove/datebot/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when a lock key is already taken.
var ErrLockHeld = errors.New("lock already held")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForMatchLock is the per-requester lock taken while a match is selected.
func (c *RedisCache) KeyForMatchLock(userID int64) string {
	return fmt.Sprintf("match:lock:%d", userID)
}

// KeyForIncomingLikes is the cached count of likes awaiting a user's answer.
func (c *RedisCache) KeyForIncomingLikes(userID int64) string {
	return fmt.Sprintf("likes:incoming:%d", userID)
}

// AcquireLock takes key for ttl and returns a release func that only
// deletes the key while it still holds this caller's token, so a lock that
// expired and was re-taken by someone else is left alone.
func (c *RedisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := strconv.FormatInt(time.Now().UnixNano(), 36)
	ok, err := c.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, c.Client, []string{key}, token).Err()
	}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SetIncomingLikes stores a freshly counted value with ttl.
func (c *RedisCache) SetIncomingLikes(ctx context.Context, userID int64, count int64, ttl time.Duration) error {
	return c.Set(ctx, c.KeyForIncomingLikes(userID), count, ttl)
}

// GetIncomingLikes returns the cached count; ok is false on a miss.
func (c *RedisCache) GetIncomingLikes(ctx context.Context, userID int64, ttl time.Duration) (count int64, ok bool, err error) {
	key := c.KeyForIncomingLikes(userID)
	val, err := c.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, ttl).Err()
	return n, true, nil
}

// InvalidateIncomingLikes drops the cached count so the next read recounts.
func (c *RedisCache) InvalidateIncomingLikes(ctx context.Context, userID int64) error {
	return c.Del(ctx, c.KeyForIncomingLikes(userID))
}
