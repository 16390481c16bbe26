package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/config"
)

// =============================================================================
// 🧪 RedisStore 测试
// =============================================================================

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "test:snap:", ttl, zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	mr, store := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	rec := Record{ID: "abc", RunID: "run-1", Data: []byte(`{"answer":"Paris"}`), CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, rec))

	assert.True(t, mr.Exists("test:snap:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:snap:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	values, err := got.Values()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"answer": "Paris"}, values)
}

func TestRedisStore_Expiry(t *testing.T) {
	t.Parallel()

	mr, store := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Record{ID: "short"}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NoTTL(t *testing.T) {
	t.Parallel()

	mr, store := setupTestRedis(t, 0)
	require.NoError(t, store.Save(context.Background(), Record{ID: "forever"}))
	assert.Zero(t, mr.TTL("test:snap:forever"))
}

func TestRedisStore_Closed(t *testing.T) {
	t.Parallel()

	_, store := setupTestRedis(t, 0)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close is a no-op")

	assert.Error(t, store.Save(context.Background(), Record{ID: "x"}))
	_, err := store.Load(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewRedisStore_FromConfig(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	redisCfg := config.DefaultRedisConfig()
	redisCfg.Addr = mr.Addr()

	store, err := NewRedisStore(context.Background(), redisCfg, config.DefaultSnapshotConfig(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Save(context.Background(), Record{ID: "cfg"}))
	assert.True(t, mr.Exists("nodeflow:snapshot:cfg"))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	redisCfg := config.DefaultRedisConfig()
	redisCfg.Addr = addr
	_, err := NewRedisStore(context.Background(), redisCfg, config.DefaultSnapshotConfig(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
