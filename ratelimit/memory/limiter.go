package memorylimiter

import (
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Defaults returns per-bucket limits tuned for this service: payment
// initiation and callbacks are tight (they trigger provider calls and
// email), content reads are looser (the viewer refetches the stream).
func Defaults() map[string]Limit {
	return map[string]Limit{
		"stkpush":  {Limit: 10, Window: time.Minute},
		"callback": {Limit: 30, Window: time.Minute},
		"delivery": {Limit: 10, Window: time.Minute},
		"content":  {Limit: 120, Window: time.Minute},
		"default":  {Limit: 60, Window: time.Minute},
	}
}

// Limiter is an in-memory sliding-window rate limiter, the single-node
// fallback when Redis is not configured.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string][]int64 // request times in Unix ms, newest last
}

// New constructs an in-memory limiter. Nil limits means Defaults().
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = Defaults()
	}
	return &Limiter{limits: limits, buckets: make(map[string][]int64)}
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

// AllowNamed reports whether one more request is allowed for (bucket, key),
// pruning entries older than the window and dropping empty buckets so memory
// stays bounded.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.limitFor(bucket)
	nowMs := time.Now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	bucketKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.buckets[bucketKey]
	keep := 0
	for keep < len(ts) && ts[keep] < windowStart {
		keep++
	}
	ts = ts[keep:]

	if len(ts) >= lim.Limit {
		if len(ts) == 0 {
			delete(l.buckets, bucketKey)
		} else {
			l.buckets[bucketKey] = ts
		}
		return false, nil
	}

	l.buckets[bucketKey] = append(ts, nowMs)
	return true, nil
}
