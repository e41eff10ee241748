package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dcode-github/property_rentals/backend/models"
)

const (
	cacheKeyPrefix = "property:"
	scanPattern    = cacheKeyPrefix + "*"
	scanCount      = 100
	// generationKey is bumped by every write. It sits outside scanPattern so
	// invalidation never deletes it.
	generationKey = "property-generation"
)

var errStaleRead = errors.New("property cache generation changed during read")

// CachedStore is a read-through Redis cache in front of another
// PropertyStore. List reads are cached; reads by id always go to the store.
// Every write drops all cached lists before returning.
type CachedStore struct {
	next   PropertyStore
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next PropertyStore, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, redis: redisClient, ttl: ttl, logger: logger}
}

func (c *CachedStore) CreateProperty(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (string, error) {
	id, err := c.next.CreateProperty(ctx, data, realtorID, realtorEmail)
	if err == nil {
		c.invalidate(ctx)
	}
	return id, err
}

func (c *CachedStore) GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	key := generateCacheKey("available", filters.Values())
	return c.readThrough(ctx, key, func() ([]models.Property, error) {
		return c.next.GetProperties(ctx, filters)
	})
}

func (c *CachedStore) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	key := generateCacheKey("realtor:"+realtorID, nil)
	return c.readThrough(ctx, key, func() ([]models.Property, error) {
		return c.next.GetPropertiesByRealtor(ctx, realtorID)
	})
}

func (c *CachedStore) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	return c.next.GetPropertyByID(ctx, id)
}

func (c *CachedStore) UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error {
	err := c.next.UpdateProperty(ctx, id, data)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedStore) DeleteProperty(ctx context.Context, id string) error {
	err := c.next.DeleteProperty(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedStore) TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error {
	err := c.next.TogglePropertyAvailability(ctx, id, isAvailable)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedStore) SearchProperties(ctx context.Context, term string) ([]models.Property, error) {
	all, err := c.GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return FilterByTerm(all, term), nil
}

// readThrough serves key from Redis, falling back to load on a miss. Redis
// failures degrade to a plain store read.
func (c *CachedStore) readThrough(ctx context.Context, key string, load func() ([]models.Property, error)) ([]models.Property, error) {
	cached, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var props []models.Property
		if uerr := json.Unmarshal(cached, &props); uerr == nil {
			c.logger.Debug("Cache hit", slog.String("key", key))
			return props, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis GET error", slog.String("key", key), slog.String("error", err.Error()))
	}

	c.logger.Debug("Cache miss", slog.String("key", key))
	gen, genErr := c.generation(ctx, c.redis)
	props, err := load()
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		c.logger.Warn("Redis generation read failed", slog.String("error", genErr.Error()))
		return props, nil
	}

	data, err := json.Marshal(props)
	if err != nil {
		c.logger.Warn("Failed to serialize properties", slog.String("error", err.Error()))
		return props, nil
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("Skipping cache fill after concurrent write", slog.String("key", key))
	default:
		c.logger.Warn("Failed to cache response", slog.String("key", key), slog.String("error", err.Error()))
	}
	return props, nil
}

// generation reads the write counter; a missing counter is generation 0.
func (c *CachedStore) generation(ctx context.Context, cmd redis.StringCmdable) (int64, error) {
	n, err := cmd.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// invalidate bumps the generation, then drops every cached list. Reads that
// loaded under an older generation do not fill the cache.
func (c *CachedStore) invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("Property cache generation bump failed", slog.String("error", err.Error()))
	}
	if err := deletePropertyCache(ctx, c.redis); err != nil {
		c.logger.Warn("Property cache invalidation failed", slog.String("error", err.Error()))
	}
}

func generateCacheKey(scope string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(scope)
	sb.WriteString(":")

	for _, key := range keys {
		values := append([]string(nil), params[key]...)
		sort.Strings(values)
		for _, val := range values {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString("&")
		}
	}
	rawKey := strings.TrimSuffix(sb.String(), "&")

	sum := sha256.Sum256([]byte(rawKey))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func deletePropertyCache(ctx context.Context, redisClient *redis.Client) error {
	var keysToDelete []string
	var cursor uint64
	for {
		keys, next, err := redisClient.Scan(ctx, cursor, scanPattern, scanCount).Result()
		if err != nil {
			return err
		}
		keysToDelete = append(keysToDelete, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keysToDelete) == 0 {
		return nil
	}

	pipe := redisClient.Pipeline()
	for _, key := range keysToDelete {
		pipe.Del(ctx, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}
