package jobs

import (
	"context"
	"fmt"
	"time"

	"equiprent-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistributedLock keeps sweeps from overlapping across processes.
type DistributedLock interface {
	// Acquire returns a token when the lock was taken and ok=false when another
	// holder has it.
	Acquire(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// releaseScript deletes the key only while it still holds our token, so a sweep
// that outlived its TTL cannot free a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLock struct {
	client redis.Cmdable
	key    string
}

func NewRedisLock(client redis.Cmdable, key string) DistributedLock {
	return &redisLock{client: client, key: key}
}

func (l *redisLock) Acquire(ctx context.Context, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	logger.ExternalServiceCall("redis", "SetNX", "key", l.key, "ttl", ttl)
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	logger.ExternalServiceResult("redis", "SetNX", err, "key", l.key, "acquired", ok)
	if err != nil {
		return "", false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *redisLock) Release(ctx context.Context, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	logger.ExternalServiceResult("redis", "Release", err, "key", l.key, "deleted", deleted)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if deleted == 0 {
		logger.Warn("Sweep lock expired before release", "key", l.key)
	}
	return nil
}
