package redlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a single-instance redis lock. The scheduler takes one per tick so
// that overlapping cron invocations skip instead of double-claiming jobs.
type Locker struct {
	client redis.UniversalClient
	key    string
	value  string // Used for ensuring that only the lock holder can unlock or renew the lock
}

func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		value:  value,
	}
}

func (l *Locker) Lock(ctx context.Context, timeout time.Duration) error {
	success, err := l.client.SetNX(ctx, l.key, l.value, timeout).Result()
	if err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("lock for key %s is already held", l.key)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed, either lock expired or you're not the lock holder for key %s", l.key)
	}
	return nil
}

func (l *Locker) ExtendLock(ctx context.Context, extension time.Duration) error {
	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value, fmt.Sprintf("%d", extension.Milliseconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("lock extension failed for key %s, either lock expired or you're not the holder", l.key)
	}
	return nil
}

// WithLock runs fn while holding key, releasing on return. ErrHeld is
// returned without running fn when another holder has the key; callers treat
// that as "another invocation is already working this tick".
func WithLock(ctx context.Context, client redis.UniversalClient, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	locker := NewLocker(client, key, uuid.New().String())
	if err := locker.Lock(ctx, ttl); err != nil {
		return ErrHeld
	}
	// Unlock failure means the TTL already released it.
	defer func() { _ = locker.Unlock(ctx) }()
	return fn(ctx)
}

// ErrHeld signals that the lock is owned by a concurrent invocation.
var ErrHeld = fmt.Errorf("lock already held")
