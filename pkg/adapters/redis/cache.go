// Package redis provides a read-through Redis cache for reference option
// lists (colors, makes, models by make).
//
// Option lists change rarely and are fetched by every wizard session that
// opens, so they are worth sharing across sessions and processes. Redis is
// never authoritative: any Redis failure falls back to the upstream catalog.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "rentdesk:"
	lockTTL       = 5 * time.Second
)

// unlockScript deletes the fill lock only if we still own it.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Cache implements ports.Catalog on top of an upstream catalog.
type Cache struct {
	client   *backend.Client
	upstream ports.Catalog
	ttl      time.Duration
	prefix   string
	lockWait time.Duration
	logger   *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long an option list stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix (default "rentdesk:").
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithLockWait bounds how long a miss waits for another process that is
// already filling the same key.
func WithLockWait(d time.Duration) Option {
	return func(c *Cache) {
		c.lockWait = d
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewFromClient wraps upstream with a cache stored through client.
func NewFromClient(client *backend.Client, upstream ports.Catalog, opts ...Option) *Cache {
	c := &Cache{
		client:   client,
		upstream: upstream,
		ttl:      defaultTTL,
		prefix:   defaultPrefix,
		lockWait: time.Second,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Colors(ctx context.Context) ([]domain.Option, error) {
	return c.load(ctx, "colors", c.upstream.Colors)
}

func (c *Cache) Makes(ctx context.Context) ([]domain.Option, error) {
	return c.load(ctx, "makes", c.upstream.Makes)
}

func (c *Cache) Models(ctx context.Context, makeID string) ([]domain.Option, error) {
	return c.load(ctx, "models:"+makeID, func(ctx context.Context) ([]domain.Option, error) {
		return c.upstream.Models(ctx, makeID)
	})
}

// Purge drops every cached option list.
func (c *Cache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"options:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan option keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) key(name string) string {
	return c.prefix + "options:" + name
}

func (c *Cache) load(ctx context.Context, name string, fetch func(context.Context) ([]domain.Option, error)) ([]domain.Option, error) {
	key := c.key(name)

	opts, hit, err := c.get(ctx, key)
	if err != nil {
		c.logger.Warn("option cache unavailable", "key", key, "error", err)
		return fetch(ctx)
	}
	if hit {
		return opts, nil
	}

	unlock, acquired, err := c.lock(ctx, key)
	if err != nil {
		c.logger.Warn("option cache lock failed", "key", key, "error", err)
		return fetch(ctx)
	}
	if !acquired {
		// Someone else is filling the key; give them a moment.
		if opts, ok := c.await(ctx, key); ok {
			return opts, nil
		}
		return fetch(ctx)
	}
	defer unlock()

	opts, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, key, opts); err != nil {
		c.logger.Warn("option cache write failed", "key", key, "error", err)
	}
	return opts, nil
}

func (c *Cache) get(ctx context.Context, key string) ([]domain.Option, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var opts []domain.Option
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if opts == nil {
		opts = []domain.Option{}
	}
	return opts, true, nil
}

func (c *Cache) set(ctx context.Context, key string, opts []domain.Option) error {
	if opts == nil {
		opts = []domain.Option{}
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// lock takes the fill lock of key with SET NX PX. The returned func releases
// it only if the lock is still ours.
func (c *Cache) lock(ctx context.Context, key string) (func(), bool, error) {
	lockKey := key + ":lock"
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := c.client.SetNX(ctx, lockKey, token, lockTTL).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// Release with a fresh context so a cancelled caller still unlocks.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := c.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err(); err != nil {
			c.logger.Debug("option cache unlock failed", "key", lockKey, "error", err)
		}
	}, true, nil
}

// await polls key until it is filled, lockWait elapses or ctx ends.
func (c *Cache) await(ctx context.Context, key string) ([]domain.Option, bool) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(c.lockWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-ticker.C:
			if opts, hit, err := c.get(ctx, key); err == nil && hit {
				return opts, true
			}
		}
	}
}
