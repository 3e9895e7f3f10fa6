package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// RecordCache holds records by id. Records never change after creation,
// so an entry is valid until it expires or the record is deleted.
type RecordCache interface {
	Get(ctx context.Context, id string) (Record, bool, error)
	Set(ctx context.Context, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// CachedRepository serves Get from a RecordCache and falls through to the
// backing store on a miss. Cache errors are logged and otherwise ignored.
type CachedRepository struct {
	next   metadataStore
	cache  RecordCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRepository wraps next with a read-through cache.
func NewCachedRepository(next metadataStore, cache RecordCache, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedRepository) Create(ctx context.Context, rec Record) (Record, error) {
	return r.next.Create(ctx, rec)
}

func (r *CachedRepository) List(ctx context.Context) ([]Record, error) {
	return r.next.List(ctx)
}

func (r *CachedRepository) Get(ctx context.Context, id string) (Record, error) {
	rec, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		r.logger.Warn("record cache get failed", zap.String("id", id), zap.Error(err))
	}
	if ok {
		return rec, nil
	}

	rec, err = r.next.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}

	if err := r.cache.Set(ctx, rec, r.ttl); err != nil {
		r.logger.Warn("record cache set failed", zap.String("id", id), zap.Error(err))
	}
	return rec, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.logger.Warn("record cache delete failed", zap.String("id", id), zap.Error(err))
	}
	return r.next.Delete(ctx, id)
}

// RedisCache stores BSON-encoded records under "filedrop:file:<id>".
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache builds a cache on an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "filedrop:file:"}
}

func (c *RedisCache) Get(ctx context.Context, id string) (Record, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := bson.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode cached record: %w", err)
	}
	return rec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, rec Record, ttl time.Duration) error {
	data, err := bson.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+rec.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
