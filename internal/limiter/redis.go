package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps counters in Redis: a failure counter expiring after the window and a
// block key expiring after the lockout.
type Redis struct {
	rdb    redis.Cmdable
	policy Policy
	prefix string
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(rdb redis.Cmdable, p Policy) *Redis {
	return &Redis{rdb: rdb, policy: p, prefix: "taskboard:login:"}
}

func (l *Redis) keys(email string, ipHash []byte) (fails, block string) {
	base := l.prefix + email + ":" + hex.EncodeToString(ipHash)
	return base + ":fails", base + ":block"
}

// Allow reports whether no block key is live.
func (l *Redis) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(email, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// PTTL is -2 for a missing key and -1 for a key without expiry.
	if ttl < 0 && ttl != -1 {
		return true, 0, nil
	}
	if ttl == -1 {
		ttl = l.policy.BlockFor
	}
	return false, ttl, nil
}

// Success drops both keys.
func (l *Redis) Success(ctx context.Context, email string, ipHash []byte) error {
	fails, block := l.keys(email, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

// Failure increments the counter and sets the block key once MaxFails is reached.
func (l *Redis) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(email, ipHash)

	// INCR and the first-hit TTL share one MULTI/EXEC; NX keeps the window anchored.
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, fails)
		p.ExpireNX(ctx, fails, l.policy.Window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() < int64(l.policy.MaxFails) {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, block, 1, l.policy.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.rdb.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
