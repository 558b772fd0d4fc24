package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/calcutta/internal/domain/auction"
)

// unlockLua deletes the key only while it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// DefaultRetryInterval is how often a blocked Acquire polls the key.
const DefaultRetryInterval = 25 * time.Millisecond

// LockManager implements auction.Locker with SETNX plus TTL, so several
// server processes can share one auction.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	prefix   string
	retry    time.Duration
}

var _ auction.Locker = (*LockManager)(nil)

// LockOption configures a LockManager.
type LockOption func(*LockManager)

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(p string) LockOption {
	return func(lm *LockManager) { lm.prefix = p }
}

// WithRetryInterval sets the polling interval while the key is held elsewhere.
func WithRetryInterval(d time.Duration) LockOption {
	return func(lm *LockManager) {
		if d > 0 {
			lm.retry = d
		}
	}
}

// NewLockManager creates a LockManager backed by c.
func NewLockManager(c *Client, opts ...LockOption) *LockManager {
	lm := &LockManager{
		rdb:      c.rdb,
		unlockSc: redis.NewScript(unlockLua),
		prefix:   "calcutta:lock:",
		retry:    DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// Acquire polls SETNX until the key is taken or ctx ends. The TTL bounds how
// long a crashed holder can block others.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := lm.prefix + key

	ticker := time.NewTicker(lm.retry)
	defer ticker.Stop()
	for {
		ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			return lm.releaser(lk, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", auction.ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (lm *LockManager) releaser(lk, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.unlockSc.Run(ctx, lm.rdb, []string{lk}, token).Err()
		})
	}
}
