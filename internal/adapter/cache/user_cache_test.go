package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-mvi/internal/domain/user"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func testUsers(t *testing.T) []domain.User {
	t.Helper()
	a, err := domain.Create("1", "john@example.com", "John", "Doe", "https://example.com/1.png")
	require.NoError(t, err)
	b, err := domain.Create("2", "jane@example.com", "Jane", "Roe", "")
	require.NoError(t, err)
	return []domain.User{a, b}
}

func TestRedisUsersCache_SetAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUsersCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()
	users := testUsers(t)

	require.NoError(t, cache.Set(ctx, ListKey, users))

	got, ok, err := cache.Get(ctx, ListKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, users, got)
}

func TestRedisUsersCache_EmptyListIsAHit(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUsersCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, SearchKey("nobody"), nil))

	got, ok, err := cache.Get(ctx, SearchKey("nobody"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRedisUsersCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUsersCache(client, 5*time.Minute, zaptest.NewLogger(t))

	got, ok, err := cache.Get(context.Background(), ListKey)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisUsersCache_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUsersCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, ListKey, testUsers(t)))
	assert.Equal(t, time.Minute, mr.TTL(ListKey))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, ListKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUsersCache_CorruptedData(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUsersCache(client, time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set(ListKey, "not json"))

	_, ok, err := cache.Get(context.Background(), ListKey)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisUsersCache_InvalidStoredUser(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUsersCache(client, time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set(ListKey, `[{"id":"1","email":"bad","first_name":"John","last_name":"Doe"}]`))

	_, _, err := cache.Get(context.Background(), ListKey)
	assert.Error(t, err)
}

func TestRedisUsersCache_DeleteAndClear(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUsersCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()
	users := testUsers(t)

	require.NoError(t, cache.Set(ctx, ListKey, users))
	require.NoError(t, cache.Set(ctx, SearchKey("jo"), users[:1]))
	require.NoError(t, cache.Set(ctx, SearchKey("ja"), users[1:]))
	require.NoError(t, mr.Set("other", "kept"))

	require.NoError(t, cache.Delete(ctx, SearchKey("jo")))
	assert.False(t, mr.Exists(SearchKey("jo")))
	assert.True(t, mr.Exists(ListKey))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, mr.Exists(ListKey))
	assert.False(t, mr.Exists(SearchKey("ja")))
	assert.True(t, mr.Exists("other"))

	assert.NoError(t, cache.Delete(ctx))
}

func TestRedisUsersCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUsersCache(client, time.Minute, zaptest.NewLogger(t))
	mr.Close()

	_, ok, err := cache.Get(context.Background(), ListKey)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, cache.Set(context.Background(), ListKey, testUsers(t)))
}
