package category

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// ValidityCache remembers whether a category code was assignable
type ValidityCache interface {
	Get(ctx context.Context, code int64) (valid bool, found bool)
	Set(ctx context.Context, code int64, valid bool)
}

// MemoryCache keeps validity results in process
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates an in-process cache with the given TTL
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, code int64) (bool, bool) {
	v, ok := m.c.Get(strconv.FormatInt(code, 10))
	if !ok {
		return false, false
	}
	valid, ok := v.(bool)
	return valid, ok
}

func (m *MemoryCache) Set(_ context.Context, code int64, valid bool) {
	m.c.SetDefault(strconv.FormatInt(code, 10), valid)
}

// RedisCache shares validity results between processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "category:valid:"}, nil
}

func (r *RedisCache) key(code int64) string {
	return r.prefix + strconv.FormatInt(code, 10)
}

func (r *RedisCache) Get(ctx context.Context, code int64) (bool, bool) {
	val, err := r.client.Get(ctx, r.key(code)).Result()
	if err != nil {
		// redis.Nil is a plain miss; other errors are treated the same way
		return false, false
	}
	return val == "1", true
}

func (r *RedisCache) Set(ctx context.Context, code int64, valid bool) {
	v := "0"
	if valid {
		v = "1"
	}
	r.client.Set(ctx, r.key(code), v, r.ttl)
}

// Close closes the Redis client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// LayeredCache reads the first layer that has an answer and writes all layers
type LayeredCache []ValidityCache

func (l LayeredCache) Get(ctx context.Context, code int64) (bool, bool) {
	for i, c := range l {
		if valid, ok := c.Get(ctx, code); ok {
			for _, upper := range l[:i] {
				upper.Set(ctx, code, valid)
			}
			return valid, true
		}
	}
	return false, false
}

func (l LayeredCache) Set(ctx context.Context, code int64, valid bool) {
	for _, c := range l {
		c.Set(ctx, code, valid)
	}
}
