package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

// RedisConfig holds configuration for the Redis connection.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisUsage keeps daily counters in Redis so every instance shares one quota.
type RedisUsage struct {
	rdb    *redis.Client
	limits Limits
	prefix string
	now    func() time.Time
}

var _ companion.UsageChecker = (*RedisUsage)(nil)

// NewRedisUsage connects and pings before returning.
func NewRedisUsage(cfg RedisConfig, limits Limits) (*RedisUsage, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "companion:usage"
	}
	return &RedisUsage{rdb: rdb, limits: limits, prefix: prefix, now: time.Now}, nil
}

func (r *RedisUsage) Close() error {
	return r.rdb.Close()
}

// CheckDailyUsage increments today's counter and sets its expiry in one transaction.
func (r *RedisUsage) CheckDailyUsage(ctx context.Context, identifier string, authenticated bool) (companion.Usage, error) {
	now := r.now()
	key := dayKey(r.prefix, identifier, authenticated, now)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, untilTomorrow(now))
		return nil
	})
	if err != nil {
		return companion.Usage{}, fmt.Errorf("count usage for %s: %w", key, err)
	}
	return r.limits.evaluate(incr.Val(), authenticated), nil
}
