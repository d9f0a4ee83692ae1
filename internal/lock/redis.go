package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/abhisek/atomastery/internal/logger"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process talking to the same
// Redis. Locks expire after ttl so a crashed holder cannot wedge a key.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	poll   time.Duration
	prefix string
	log    *logger.Logger
}

// NewRedisLocker builds a locker on client. ttl must exceed the longest
// expected read-modify-write cycle.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		poll:   25 * time.Millisecond,
		prefix: "atomastery:lock:",
		log:    log,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}

		t := time.NewTimer(r.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be done; release regardless.
			rctx, cancel := context.WithTimeout(context.Background(), r.ttl)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{k}, token).Err(); err != nil {
				r.log.Warn("release lock failed", "key", key, "error", err)
			}
		})
	}, nil
}
