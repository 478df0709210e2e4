// Package lock provides a small Redis mutex used to serialize concurrent
// submissions of the same fingerprint across API instances. The database
// transaction is still the commit point; the lock only closes the window in
// which two submitters could both miss each other's uncommitted job row.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrNotAcquired = errors.New("lock not acquired")

const (
	keyPrefix = "lock:submit:"

	defaultTTL      = 10 * time.Second
	defaultRetries  = 50
	defaultInterval = 20 * time.Millisecond
)

type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the submit lock for (tenant, fingerprint), retrying briefly
// before giving up. The returned release function is safe to defer.
func (l *Locker) Acquire(ctx context.Context, tenantID int64, fingerprint string) (func(), error) {
	key := fmt.Sprintf("%s%d:%s", keyPrefix, tenantID, fingerprint)

	for i := 0; i < defaultRetries; i++ {
		ok, err := l.client.SetNX(ctx, key, "1", defaultTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire submit lock: %w", err)
		}
		if ok {
			release := func() {
				l.client.Del(context.Background(), key)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(defaultInterval):
		}
	}

	return nil, ErrNotAcquired
}
