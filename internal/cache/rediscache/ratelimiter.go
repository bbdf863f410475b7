package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Decision: результат одной проверки окна.
type Decision struct {
	Allowed   bool
	Count     int64
	Remaining int64
	ResetIn   time.Duration
}

// RateLimiter считает запросы в фиксированных окнах: один ключ на окно.
type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Allow увеличивает счётчик окна. TTL ставится только когда окно открывается,
// поэтому повторные запросы его не продлевают.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Decision, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, errors.Wrap(err, "redis ratelimit")
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := rl.c.PExpire(ctx, key, window).Err(); err != nil {
			return Decision{}, errors.Wrap(err, "redis ratelimit expire")
		}
		ttl = window
	}

	n := incr.Val()
	return Decision{
		Allowed:   n <= limit,
		Count:     n,
		Remaining: max(limit-n, 0),
		ResetIn:   ttl,
	}, nil
}

func (rl *RateLimiter) Ping(ctx context.Context) error {
	return errors.Wrap(rl.c.Ping(ctx).Err(), "redis ping")
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}

// MinuteKey строит ключ минутного окна для пары (scope, subject).
func MinuteKey(scope, subject string, now time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%s", scope, subject, now.UTC().Format("200601021504"))
}
