package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/models"
)

// RedisClient is the subset of *redis.Client used by the cache.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

const (
	keyAllPoints = "tlog:flight-data:all"
	keyFiles     = "tlog:files"
	keyFilePfx   = "tlog:flight-data:file:"
)

// CachedStore serves unpaged reads from Redis and falls through to the
// wrapped store. Entries for a file are dropped after each commit to it.
// Redis failures degrade to uncached reads.
type CachedStore struct {
	ingest.Store
	client RedisClient
	ttl    time.Duration
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewCachedStore wraps store with a Redis read cache.
func NewCachedStore(store ingest.Store, client RedisClient, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, client: client, ttl: ttl}
}

// CommitBatch commits through the wrapped store and invalidates affected keys.
func (c *CachedStore) CommitBatch(ctx context.Context, fileName string, samples []models.Sample) (int, error) {
	n, err := c.Store.CommitBatch(ctx, fileName, samples)
	if err != nil || n == 0 {
		return n, err
	}
	if err := c.client.Del(ctx, keyAllPoints, keyFiles, keyFilePfx+fileName).Err(); err != nil {
		log.Printf("[Cache] Warning: failed to invalidate %s: %v", fileName, err)
	}
	return n, nil
}

// Query serves unpaged queries from the cache.
func (c *CachedStore) Query(ctx context.Context, q models.FlightDataQuery) ([]models.FlightDataPoint, error) {
	if q.Paged() {
		return c.Store.Query(ctx, q)
	}
	key := keyAllPoints
	if q.FileName != "" {
		key = keyFilePfx + q.FileName
	}

	points := []models.FlightDataPoint{}
	if c.load(ctx, key, &points) {
		return points, nil
	}
	points, err := c.Store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, points)
	return points, nil
}

// Files serves the per-file summary from the cache.
func (c *CachedStore) Files(ctx context.Context) ([]models.FileSummary, error) {
	files := []models.FileSummary{}
	if c.load(ctx, keyFiles, &files) {
		return files, nil
	}
	files, err := c.Store.Files(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, keyFiles, files)
	return files, nil
}

// Ping checks the wrapped store and Redis.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes Redis and the wrapped store.
func (c *CachedStore) Close() error {
	cErr := c.client.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return cErr
}

func (c *CachedStore) load(ctx context.Context, key string, target any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Printf("[Cache] Warning: get %s: %v", key, err)
		return false
	}
	if err := msgpack.Unmarshal(data, target); err != nil {
		log.Printf("[Cache] Warning: decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *CachedStore) save(ctx context.Context, key string, value any) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		log.Printf("[Cache] Warning: encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[Cache] Warning: set %s: %v", key, err)
	}
}

var _ ingest.Store = (*CachedStore)(nil)
