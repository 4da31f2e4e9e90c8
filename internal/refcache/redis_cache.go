// Package refcache provides a Redis-backed cache for reference name
// resolutions (building, contractor, status, role names to ids).
package refcache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind namespaces the cached entries per reference table.
type Kind string

const (
	KindBuilding   Kind = "building"
	KindContractor Kind = "contractor"
	KindStatus     Kind = "status"
	KindRole       Kind = "role"
)

// Cache caches resolved reference ids with a short TTL. Reference rows
// are managed outside this service, so entries expire rather than being
// invalidated.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Redis-backed resolution cache
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client), nil
}

// NewWithClient creates a cache from an existing Redis client
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "ref:",
		ttl:    10 * time.Minute,
	}
}

func (c *Cache) key(kind Kind, name string) string {
	return c.prefix + string(kind) + ":" + name
}

// Get returns the cached id for a name. Any Redis error counts as a
// miss; resolution falls through to the database.
func (c *Cache) Get(ctx context.Context, kind Kind, name string) (int64, bool) {
	raw, err := c.client.Get(ctx, c.key(kind, name)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Put stores a resolved id. Failures are ignored; the cache is an
// optimization, not a source of truth.
func (c *Cache) Put(ctx context.Context, kind Kind, name string, id int64) {
	_ = c.client.Set(ctx, c.key(kind, name), strconv.FormatInt(id, 10), c.ttl).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
