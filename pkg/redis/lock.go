package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process owns the lock
var ErrLockHeld = errors.New("lock held by another process")

// releaseScript deletes KEYS[1] only while it still holds ARGV[1]
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a best-effort single-writer lock (SET NX with TTL)
type Lock struct {
	client *Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewLock creates a lock for name; owner identifies this process
func NewLock(client *Client, name, owner string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    fmt.Sprintf("%s:lock:%s", client.Prefix(), name),
		owner:  owner,
		ttl:    ttl,
	}
}

// Acquire takes the lock or returns ErrLockHeld
func (l *Lock) Acquire(ctx context.Context) error {
	if !l.client.Enabled() {
		return nil
	}

	ok, err := l.client.Redis().SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return ErrLockHeld
	}

	return nil
}

// Release drops the lock if this owner still holds it
func (l *Lock) Release(ctx context.Context) error {
	if !l.client.Enabled() {
		return nil
	}

	err := releaseScript.Run(ctx, l.client.Redis(), []string{l.key}, l.owner).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
