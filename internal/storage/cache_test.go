package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlog-viewer/backend/internal/models"
	"github.com/tlog-viewer/backend/internal/testutil"
)

// fakeRedis is an in-memory RedisClient.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	gets    int
	deleted []string
	failGet error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
		f.deleted = append(f.deleted, k)
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func TestCachedStoreQuery(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewMemoryStore()
	rc := newFakeRedis()
	s := NewCachedStore(inner, rc, time.Minute)

	_, err := s.CommitBatch(ctx, "a.tlog", testSamples())
	require.NoError(t, err)

	first, err := s.Query(ctx, models.FlightDataQuery{FileName: "a.tlog"})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.True(t, rc.has(keyFilePfx+"a.tlog"))
	assert.Equal(t, time.Minute, rc.ttls[keyFilePfx+"a.tlog"])

	// Served from Redis even though the inner store changes underneath.
	_, err = inner.CommitBatch(ctx, "a.tlog", testSamples()[:1])
	require.NoError(t, err)
	cached, err := s.Query(ctx, models.FlightDataQuery{FileName: "a.tlog"})
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Nil(t, cached[1].Heading)

	// A commit through the cache invalidates the file, all-points and files keys.
	rc.deleted = nil
	_, err = s.CommitBatch(ctx, "a.tlog", testSamples()[:1])
	require.NoError(t, err)
	assert.False(t, rc.has(keyFilePfx+"a.tlog"))
	assert.ElementsMatch(t, []string{keyAllPoints, keyFiles, keyFilePfx + "a.tlog"}, rc.deleted)

	fresh, err := s.Query(ctx, models.FlightDataQuery{FileName: "a.tlog"})
	require.NoError(t, err)
	assert.Len(t, fresh, 5)
}

func TestCachedStorePagedBypassesCache(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewMemoryStore()
	rc := newFakeRedis()
	s := NewCachedStore(inner, rc, time.Minute)

	_, err := s.CommitBatch(ctx, "a.tlog", testSamples())
	require.NoError(t, err)

	points, err := s.Query(ctx, models.FlightDataQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 0, rc.gets)
	assert.Empty(t, rc.data)
}

func TestCachedStoreFiles(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewMemoryStore()
	rc := newFakeRedis()
	s := NewCachedStore(inner, rc, time.Minute)

	_, err := s.CommitBatch(ctx, "a.tlog", testSamples())
	require.NoError(t, err)

	files, err := s.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, rc.has(keyFiles))

	again, err := s.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, files, again)
}

func TestCachedStoreRedisFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewMemoryStore()
	rc := newFakeRedis()
	rc.failGet = errors.New("connection refused")
	s := NewCachedStore(inner, rc, time.Minute)

	_, err := s.CommitBatch(ctx, "a.tlog", testSamples())
	require.NoError(t, err)

	points, err := s.Query(ctx, models.FlightDataQuery{})
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestCachedStoreFailedCommitKeepsCache(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewMemoryStore()
	rc := newFakeRedis()
	s := NewCachedStore(inner, rc, time.Minute)

	_, err := s.Query(ctx, models.FlightDataQuery{})
	require.NoError(t, err)
	require.True(t, rc.has(keyAllPoints))

	inner.FailCommit = errors.New("disk full")
	_, err = s.CommitBatch(ctx, "a.tlog", testSamples())
	assert.Error(t, err)
	assert.True(t, rc.has(keyAllPoints))
	assert.Empty(t, rc.deleted)
}

func TestCachedStorePingAndClose(t *testing.T) {
	rc := newFakeRedis()
	s := NewCachedStore(testutil.NewMemoryStore(), rc, time.Minute)

	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.True(t, rc.closed)
}
