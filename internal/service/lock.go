package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunLock keeps two scheduler runs from processing the same batch.
type RunLock interface {
	// TryLock returns a release func when the lock was acquired, or nil when
	// another holder has it.
	TryLock(ctx context.Context) (func(), error)
}

// LocalLock serialises runs inside one process.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, nil
	}
	return l.mu.Unlock, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLock serialises runs across processes sharing one Redis.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisLock) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return func() {
		// The run's context may already be cancelled.
		deleted, err := releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Int()
		if err != nil {
			l.logger.Error("Failed to release run lock", zap.String("key", l.key), zap.Error(err))
			return
		}
		if deleted == 0 {
			l.logger.Warn("Run lock expired before release", zap.String("key", l.key), zap.Duration("ttl", l.ttl))
		}
	}, nil
}
