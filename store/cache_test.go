package store

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcode-github/property_rentals/backend/models"
)

// countingStore counts list reads reaching the backing store.
type countingStore struct {
	*MemoryStore
	listReads atomic.Int32
}

func (c *countingStore) GetProperties(ctx context.Context, f *models.PropertyFilters) ([]models.Property, error) {
	c.listReads.Add(1)
	return c.MemoryStore.GetProperties(ctx, f)
}

func (c *countingStore) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	c.listReads.Add(1)
	return c.MemoryStore.GetPropertiesByRealtor(ctx, realtorID)
}

// parkedStore blocks list reads after loading until release is closed.
type parkedStore struct {
	*MemoryStore
	loaded  chan struct{}
	release chan struct{}
}

func (p *parkedStore) GetProperties(ctx context.Context, f *models.PropertyFilters) ([]models.Property, error) {
	props, err := p.MemoryStore.GetProperties(ctx, f)
	if p.loaded != nil {
		close(p.loaded)
		p.loaded = nil
		<-p.release
	}
	return props, err
}

func listKeys(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, cacheKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func newCachedStore(t *testing.T) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backing := &countingStore{MemoryStore: NewMemoryStore().WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))}
	return NewCachedStore(backing, rdb, 10*time.Minute, nil), backing, mr
}

func TestCachedStoreServesRepeatReadsFromRedis(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := newCachedStore(t)

	_, err := backing.CreateProperty(ctx, listing("Loft", 150), "r1", "r1@example.com")
	require.NoError(t, err)

	first, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	second, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, int32(1), backing.listReads.Load())
	assert.Len(t, listKeys(mr), 1)
}

func TestCachedStoreKeysDifferByFilter(t *testing.T) {
	ctx := context.Background()
	cached, backing, _ := newCachedStore(t)

	_, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	_, err = cached.GetProperties(ctx, &models.PropertyFilters{MinPrice: ptr(100.0)})
	require.NoError(t, err)
	_, err = cached.GetPropertiesByRealtor(ctx, "r1")
	require.NoError(t, err)

	assert.Equal(t, int32(3), backing.listReads.Load())
}

func TestCachedStoreWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := newCachedStore(t)

	_, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, listKeys(mr))

	id, err := cached.CreateProperty(ctx, listing("Loft", 150), "r1", "r1@example.com")
	require.NoError(t, err)
	assert.Empty(t, listKeys(mr))

	got, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(got))

	require.NoError(t, cached.TogglePropertyAvailability(ctx, id, false))
	got, err = cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), backing.listReads.Load())
}

func TestCachedStoreDropsReadThatRacedAWrite(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	loaded := make(chan struct{})
	backing := &parkedStore{MemoryStore: NewMemoryStore(), loaded: loaded, release: make(chan struct{})}
	cached := NewCachedStore(backing, rdb, 10*time.Minute, nil)

	id, err := backing.CreateProperty(ctx, listing("Loft", 150), "r1", "r1@example.com")
	require.NoError(t, err)

	done := make(chan []models.Property)
	go func() {
		props, err := cached.GetProperties(ctx, nil)
		assert.NoError(t, err)
		done <- props
	}()

	<-loaded
	require.NoError(t, cached.TogglePropertyAvailability(ctx, id, false))
	close(backing.release)

	assert.Equal(t, []string{id}, ids(<-done))
	assert.Empty(t, listKeys(mr))

	got, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := newCachedStore(t)
	_, err := backing.CreateProperty(ctx, listing("Loft", 150), "r1", "r1@example.com")
	require.NoError(t, err)

	mr.Close()

	got, err := cached.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCachedStoreSearchUsesCachedList(t *testing.T) {
	ctx := context.Background()
	cached, backing, _ := newCachedStore(t)
	loft := listing("Loft", 150)
	_, err := backing.CreateProperty(ctx, loft, "r1", "r1@example.com")
	require.NoError(t, err)
	_, err = backing.CreateProperty(ctx, listing("Cottage", 150), "r1", "r1@example.com")
	require.NoError(t, err)

	got, err := cached.SearchProperties(ctx, "LOFT")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	_, err = cached.SearchProperties(ctx, "cottage")
	require.NoError(t, err)
	assert.Equal(t, int32(1), backing.listReads.Load())
}

func TestGenerateCacheKeyIsOrderIndependent(t *testing.T) {
	a := url.Values{"maxPrice": {"200"}, "minPrice": {"100"}}
	b := url.Values{"minPrice": {"100"}, "maxPrice": {"200"}}
	assert.Equal(t, generateCacheKey("available", a), generateCacheKey("available", b))
	assert.NotEqual(t, generateCacheKey("available", a), generateCacheKey("realtor:r1", a))
	assert.Contains(t, generateCacheKey("available", nil), cacheKeyPrefix)
}
