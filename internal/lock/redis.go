package lock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyLock = "federate:lock:%s"

// deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// implements Locker using Redis SET NX PX
type RedisLocker struct {
	client *redis.Client
	opts   Options
}

// creates a new Redis-backed locker
func NewRedisLocker(client *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{client: client, opts: opts.withDefaults()}
}

// blocks until key is free, then holds it until the returned Unlock is called or the TTL passes
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	redisKey := fmt.Sprintf(keyLock, key)

	token, err := acquire(ctx, l.opts, func(ctx context.Context, token string) (bool, error) {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.opts.TTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to set lock: %w", err)
		}

		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}

		return nil
	}, nil
}
