package redis_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rentdesk/pkg/adapters/memory"
	"github.com/aretw0/rentdesk/pkg/adapters/redis"
	"github.com/aretw0/rentdesk/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCatalog records how often each list reached upstream.
type countingCatalog struct {
	*memory.Backend
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newCountingCatalog() *countingCatalog {
	return &countingCatalog{Backend: memory.NewDefault(), calls: make(map[string]int)}
}

func (c *countingCatalog) hit(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
	return c.err
}

func (c *countingCatalog) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingCatalog) Colors(ctx context.Context) ([]domain.Option, error) {
	if err := c.hit("colors"); err != nil {
		return nil, err
	}
	return c.Backend.Colors(ctx)
}

func (c *countingCatalog) Makes(ctx context.Context) ([]domain.Option, error) {
	if err := c.hit("makes"); err != nil {
		return nil, err
	}
	return c.Backend.Makes(ctx)
}

func (c *countingCatalog) Models(ctx context.Context, makeID string) ([]domain.Option, error) {
	if err := c.hit("models:" + makeID); err != nil {
		return nil, err
	}
	return c.Backend.Models(ctx, makeID)
}

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *countingCatalog, *redis.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	upstream := newCountingCatalog()
	return mr, upstream, redis.NewFromClient(client, upstream, opts...)
}

func TestCache_ReadThrough(t *testing.T) {
	_, upstream, cache := setup(t)
	ctx := context.Background()

	first, err := cache.Makes(ctx)
	require.NoError(t, err)
	second, err := cache.Makes(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
	assert.Equal(t, 1, upstream.Calls("makes"))
}

func TestCache_ModelsKeyedByMake(t *testing.T) {
	mr, upstream, cache := setup(t)
	ctx := context.Background()

	toyota, err := cache.Models(ctx, "toyota")
	require.NoError(t, err)
	renault, err := cache.Models(ctx, "renault")
	require.NoError(t, err)
	assert.NotEqual(t, toyota, renault)

	_, err = cache.Models(ctx, "toyota")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.Calls("models:toyota"))
	assert.True(t, mr.Exists("rentdesk:options:models:toyota"))
	assert.True(t, mr.Exists("rentdesk:options:models:renault"))
}

func TestCache_EmptyListIsCached(t *testing.T) {
	_, upstream, cache := setup(t)
	ctx := context.Background()

	for range 2 {
		models, err := cache.Models(ctx, "unknown")
		require.NoError(t, err)
		assert.NotNil(t, models)
		assert.Empty(t, models)
	}
	assert.Equal(t, 1, upstream.Calls("models:unknown"))
}

func TestCache_TTLExpiration(t *testing.T) {
	mr, upstream, cache := setup(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	_, err := cache.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("rentdesk:options:colors"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("rentdesk:options:colors"))

	_, err = cache.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.Calls("colors"))
}

func TestCache_Prefix(t *testing.T) {
	mr, _, cache := setup(t, redis.WithPrefix("branch-7:"))
	_, err := cache.Colors(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists("branch-7:options:colors"))
	assert.False(t, mr.Exists("rentdesk:options:colors"))
}

func TestCache_UpstreamErrorIsNotCached(t *testing.T) {
	mr, upstream, cache := setup(t)
	ctx := context.Background()

	upstream.err = errors.New("catalog down")
	_, err := cache.Colors(ctx)
	require.Error(t, err)
	assert.False(t, mr.Exists("rentdesk:options:colors"))
	assert.False(t, mr.Exists("rentdesk:options:colors:lock"))

	upstream.err = nil
	colors, err := cache.Colors(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, colors)
}

func TestCache_FallsBackWhenRedisIsDown(t *testing.T) {
	mr, upstream, cache := setup(t)
	mr.Close()

	colors, err := cache.Colors(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, colors)
	assert.Equal(t, 1, upstream.Calls("colors"))
}

func TestCache_CorruptEntryFallsBack(t *testing.T) {
	mr, upstream, cache := setup(t)
	require.NoError(t, mr.Set("rentdesk:options:makes", "{not json"))

	makes, err := cache.Makes(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, makes)
	assert.Equal(t, 1, upstream.Calls("makes"))
}

func TestCache_WaitsForConcurrentFill(t *testing.T) {
	mr, upstream, cache := setup(t, redis.WithLockWait(2*time.Second))
	require.NoError(t, mr.Set("rentdesk:options:makes:lock", "other-process"))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = mr.Set("rentdesk:options:makes", `[{"id":"fiat","name":"Fiat"}]`)
	}()

	makes, err := cache.Makes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Option{{ID: "fiat", Name: "Fiat"}}, makes)
	assert.Equal(t, 0, upstream.Calls("makes"))
}

func TestCache_Purge(t *testing.T) {
	mr, upstream, cache := setup(t)
	ctx := context.Background()

	_, err := cache.Colors(ctx)
	require.NoError(t, err)
	_, err = cache.Makes(ctx)
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, cache.Purge(ctx))
	assert.False(t, mr.Exists("rentdesk:options:colors"))
	assert.False(t, mr.Exists("rentdesk:options:makes"))
	assert.True(t, mr.Exists("unrelated"))

	_, err = cache.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.Calls("colors"))
}
