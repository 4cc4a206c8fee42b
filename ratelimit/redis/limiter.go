package redislimiter

import (
	"context"
	"fmt"
	"time"

	memorylimiter "github.com/cidali/bookstore/ratelimit/memory"
	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit = memorylimiter.Limit

// Limiter is a Redis-backed sliding-window limiter using ZSETs, for when
// the service runs more than one instance behind a balancer.
type Limiter struct {
	rdb    *redis.Client
	keyNS  string
	limits map[string]Limit
}

// New constructs a Redis-backed limiter. Nil limits means the same
// per-bucket defaults as the in-memory limiter.
func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = memorylimiter.Defaults()
	}
	return &Limiter{rdb: rdb, keyNS: "bookstore:rl:", limits: limits}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 60, Window: time.Minute}
}

// AllowNamed reports whether one more request is allowed for (bucket, key).
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	ctx := context.Background()
	lim := l.limitFor(bucket)
	now := time.Now().UnixMilli()
	start := now - lim.Window.Milliseconds()
	limitKey := l.keyNS + key + ":" + bucket

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(ctx, limitKey, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		l.rdb.ZRem(ctx, limitKey, now)
		return false, nil
	}
	return true, nil
}
