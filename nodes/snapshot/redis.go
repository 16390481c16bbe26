package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/config"
)

// =============================================================================
// 💾 Redis 快照存储
// =============================================================================

// RedisStore 以 JSON 形式把快照写入 Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisStore 连接 Redis 并校验连通性
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, snap config.SnapshotConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, snap.KeyPrefix, snap.TTL, logger), nil
}

// NewRedisStoreWithClient 使用已有客户端创建存储，ttl 为 0 表示永不过期
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.L()
	}
	s := &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "snapshot_redis")),
	}
	s.logger.Info("redis snapshot store initialized",
		zap.String("addr", client.Options().Addr),
		zap.Duration("ttl", ttl),
	)
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save 保存快照
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key(rec.ID), data, s.ttl).Err(); err != nil {
		s.logger.Error("snapshot save failed", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("snapshot save failed: %w", err)
	}
	return nil
}

// Load 读取快照
func (s *RedisStore) Load(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, fmt.Errorf("snapshot store is closed")
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("snapshot load failed: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return rec, nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("snapshot store is closed")
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭存储
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing redis snapshot store")
	return s.client.Close()
}
