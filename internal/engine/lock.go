package engine

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockTTL = 30 * time.Second

// RedisLocker serializes dispatch per interaction id with a SET NX
// lease, so two deliveries of the same event never dispatch twice
// concurrently.
type RedisLocker struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisLocker creates a locker over the given client
func NewRedisLocker(rdb *redis.Client, log *zap.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, log: log}
}

// Acquire takes the per-interaction lease. The returned release func
// deletes the lease only if this caller still owns it.
func (l *RedisLocker) Acquire(ctx context.Context, interactionID string) (func(), bool, error) {
	key := "dispatch:lock:" + interactionID
	token := ulid.Make().String()

	ok, err := l.rdb.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete so an expired lease taken over by another
		// dispatcher is not released from under it.
		const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
		if err := l.rdb.Eval(context.Background(), script, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("Failed to release dispatch lock",
				zap.String("interaction_id", interactionID),
				zap.Error(err))
		}
	}
	return release, true, nil
}
