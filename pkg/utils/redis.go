package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisNil   = errors.New("utils: redis client is nil")
	ErrSlotKey    = errors.New("utils: slot key is required")
	ErrSlotMember = errors.New("utils: slot member is required")
)

// RedisConfig holds the client settings. Zero values fall back to
// conservative defaults.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	PingTimeout time.Duration
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func (c RedisConfig) options() *redis.Options {
	pool := c.PoolSize
	if pool <= 0 {
		pool = 20
	}
	return &redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		DialTimeout:     orDuration(c.DialTimeout, 3*time.Second),
		ReadTimeout:     orDuration(c.ReadTimeout, 2*time.Second),
		WriteTimeout:    orDuration(c.WriteTimeout, 2*time.Second),
		PoolSize:        pool,
		MinIdleConns:    max(c.MinIdleConns, 0),
		PoolTimeout:     orDuration(c.PoolTimeout, 4*time.Second),
		ConnMaxIdleTime: orDuration(c.ConnMaxIdleTime, 5*time.Minute),
		ConnMaxLifetime: orDuration(c.ConnMaxLifetime, 30*time.Minute),
	}
}

// OpenRedis connects and checks the server answers PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, orDuration(cfg.PingTimeout, 2*time.Second))
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Slots live in a sorted set scored by their expiry in unix milliseconds.
// Expired members are pruned before every count, so a process that dies
// holding slots only blocks them until their TTL passes.
var slotAcquireScript = redis.NewScript(`
-- KEYS[1] slot set
-- ARGV[1] member, ARGV[2] limit, ARGV[3] now_ms, ARGV[4] ttl_ms
local now = tonumber(ARGV[3])
local expires = now + tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now)
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  redis.call('ZADD', KEYS[1], expires, ARGV[1])
  return 1
end
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('ZADD', KEYS[1], expires, ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

var slotReleaseScript = redis.NewScript(`
-- KEYS[1] slot set
-- ARGV[1] member
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
if redis.call('ZCARD', KEYS[1]) == 0 then
  redis.call('DEL', KEYS[1])
end
return removed
`)

func checkSlot(rdb *redis.Client, key, member string) error {
	switch {
	case rdb == nil:
		return ErrRedisNil
	case key == "":
		return ErrSlotKey
	case member == "":
		return ErrSlotMember
	}
	return nil
}

// AcquireSlot adds member to the slot set at key unless limit members are
// already held. Acquiring a member that is already held refreshes its expiry
// and succeeds.
func AcquireSlot(ctx context.Context, rdb *redis.Client, key, member string, limit int, ttl time.Duration, now time.Time) (bool, error) {
	if err := checkSlot(rdb, key, member); err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, fmt.Errorf("utils: slot limit must be > 0, got %d", limit)
	}
	if ttl <= 0 {
		return false, fmt.Errorf("utils: slot ttl must be > 0, got %s", ttl)
	}
	n, err := slotAcquireScript.Run(ctx, rdb, []string{key}, member, limit, now.UnixMilli(), ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("acquire slot %s: %w", key, err)
	}
	return n == 1, nil
}

// ReleaseSlot removes member from the slot set. Releasing a member that is
// not held is a no-op, so a slot can be released more than once.
func ReleaseSlot(ctx context.Context, rdb *redis.Client, key, member string) (bool, error) {
	if err := checkSlot(rdb, key, member); err != nil {
		return false, err
	}
	n, err := slotReleaseScript.Run(ctx, rdb, []string{key}, member).Int()
	if err != nil {
		return false, fmt.Errorf("release slot %s: %w", key, err)
	}
	return n == 1, nil
}
