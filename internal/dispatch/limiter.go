package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joegen/opalvoip-opal/pkg/utils"
)

// Limiter caps the number of concurrent outgoing calls. Each held slot has
// an id; releasing an id that is not held does nothing.
type Limiter interface {
	Acquire(ctx context.Context, slot string) (bool, error)
	Release(ctx context.Context, slot string) error
}

// RedisLimiter shares one cap between every process using the same key.
// Slots expire after TTL so a crashed process cannot hold them forever.
type RedisLimiter struct {
	rdb   *redis.Client
	key   string
	limit int
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, key string, limit int, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, key: key, limit: limit, ttl: ttl, now: time.Now}
}

func (l *RedisLimiter) Acquire(ctx context.Context, slot string) (bool, error) {
	return utils.AcquireSlot(ctx, l.rdb, l.key, slot, l.limit, l.ttl, l.now())
}

func (l *RedisLimiter) Release(ctx context.Context, slot string) error {
	_, err := utils.ReleaseSlot(ctx, l.rdb, l.key, slot)
	return err
}

// MemoryLimiter is a process-local cap.
type MemoryLimiter struct {
	mu    sync.Mutex
	limit int
	held  map[string]struct{}
}

func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, held: make(map[string]struct{})}
}

func (l *MemoryLimiter) Acquire(ctx context.Context, slot string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[slot]; ok {
		return true, nil
	}
	if len(l.held) >= l.limit {
		return false, nil
	}
	l.held[slot] = struct{}{}
	return true, nil
}

func (l *MemoryLimiter) Release(ctx context.Context, slot string) error {
	l.mu.Lock()
	delete(l.held, slot)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLimiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
