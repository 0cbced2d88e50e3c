package httpx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore is the shared CounterStore used when several gateway
// instances must agree on per-key counts. INCR is atomic; the expiry is
// set only on the first hit of a window so the reset boundary is stable.
type RedisCounterStore struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisCounterStore(rdb redis.Cmdable, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisCounterStore{rdb: rdb, prefix: prefix}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := s.prefix + ":" + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Do(ctx, "pexpire", k, window.Milliseconds(), "nx")
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	ttl := pttl.Val()
	if ttl < 0 {
		ttl = window
	}

	return incr.Val(), time.Now().Add(ttl), nil
}
