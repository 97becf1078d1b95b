// Package limiter enforces the per-account daily send allowance. With Redis
// configured, reservations are atomic Lua check-and-increments so concurrent
// campaign pipelines on the same account never overshoot the limit. Without
// Redis, the datastore's rolling 24-hour dispatch count is used instead.
package limiter

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Counter supplies the datastore fallback when Redis is unavailable.
type Counter interface {
	DispatchedLast24h(ctx context.Context, accountID uuid.UUID) (int, error)
}

// Lua script for atomic partial reservation against a daily counter.
// Grants min(want, remaining) and increments by the grant, so a batch that
// only partially fits still claims what it can.
const reserveLuaScript = `
local key = KEYS[1]
local want = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")
local remaining = limit - current
if remaining <= 0 then
    return 0
end

local grant = math.min(want, remaining)
local newVal = redis.call("INCRBY", key, grant)
if newVal == grant then
    redis.call("EXPIRE", key, ttl)
end

return grant
`

// dailyTTLSeconds keeps the counter a little past midnight so an in-flight
// cycle spanning the rollover still sees yesterday's usage.
const dailyTTLSeconds = 90000

// DailyAllowance tracks per-account daily send budgets.
type DailyAllowance struct {
	redis         *redis.Client // nil when Redis is not configured
	fallback      Counter
	reserveScript *redis.Script
}

// New creates a DailyAllowance. redisClient may be nil, in which case every
// reservation consults the fallback counter.
func New(redisClient *redis.Client, fallback Counter) *DailyAllowance {
	return &DailyAllowance{
		redis:         redisClient,
		fallback:      fallback,
		reserveScript: redis.NewScript(reserveLuaScript),
	}
}

// Reserve claims up to want sends against the account's daily limit and
// returns the granted count. Zero means the account is exhausted for today.
func (d *DailyAllowance) Reserve(ctx context.Context, accountID uuid.UUID, want, limit int) (int, error) {
	if want <= 0 || limit <= 0 {
		return 0, nil
	}

	if d.redis == nil {
		return d.reserveFallback(ctx, accountID, want, limit)
	}

	key := dailyKey(accountID, time.Now())
	granted, err := d.reserveScript.Run(ctx, d.redis,
		[]string{key},
		want, limit, dailyTTLSeconds,
	).Int()
	if err != nil {
		// Redis outages degrade to the datastore count rather than
		// blocking dispatch.
		log.Printf("[Allowance] Redis reserve failed, using datastore fallback: %v", err)
		return d.reserveFallback(ctx, accountID, want, limit)
	}
	return granted, nil
}

// Refund returns unused reservations after a failed dispatch so the budget
// is not burned by batches that never reached the engine.
func (d *DailyAllowance) Refund(ctx context.Context, accountID uuid.UUID, n int) {
	if d.redis == nil || n <= 0 {
		return
	}
	key := dailyKey(accountID, time.Now())
	if err := d.redis.DecrBy(ctx, key, int64(n)).Err(); err != nil {
		log.Printf("[Allowance] Refund of %d for account %s failed: %v", n, accountID, err)
	}
}

func (d *DailyAllowance) reserveFallback(ctx context.Context, accountID uuid.UUID, want, limit int) (int, error) {
	used, err := d.fallback.DispatchedLast24h(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("allowance fallback count: %w", err)
	}
	remaining := limit - used
	if remaining <= 0 {
		return 0, nil
	}
	if want < remaining {
		return want, nil
	}
	return remaining, nil
}

func dailyKey(accountID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("allowance:%s:%s", accountID, now.Format("2006-01-02"))
}
