// Package control holds the Redis-backed operator switches shared by the API
// server and the scheduler: per-tenant pause flags and cooperative
// cancellation requests for running jobs.
package control

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pausedSetKey    = "scheduler:paused_tenants"
	cancelKeyPrefix = "job:cancel:"

	// Cancel flags expire on their own so a crashed worker cannot leave one
	// behind forever.
	cancelTTL = 24 * time.Hour
)

type Control struct {
	client *redis.Client
}

func New(client *redis.Client) *Control {
	return &Control{client: client}
}

// SetPaused pauses or resumes scheduling for one tenant. In-flight jobs are
// unaffected; paused tenants just stop being selected.
func (c *Control) SetPaused(ctx context.Context, tenantID int64, paused bool) error {
	member := strconv.FormatInt(tenantID, 10)
	if paused {
		return c.client.SAdd(ctx, pausedSetKey, member).Err()
	}
	return c.client.SRem(ctx, pausedSetKey, member).Err()
}

// IsPaused reports whether a tenant's scheduling is paused.
func (c *Control) IsPaused(ctx context.Context, tenantID int64) (bool, error) {
	return c.client.SIsMember(ctx, pausedSetKey, strconv.FormatInt(tenantID, 10)).Result()
}

// PausedTenants returns all tenants currently paused.
func (c *Control) PausedTenants(ctx context.Context) ([]int64, error) {
	members, err := c.client.SMembers(ctx, pausedSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RequestCancel flags a running job for cooperative cancellation. The worker
// polls the flag between phases and exits in bounded time.
func (c *Control) RequestCancel(ctx context.Context, jobID int64) error {
	return c.client.Set(ctx, cancelKey(jobID), "1", cancelTTL).Err()
}

// CancelRequested reports whether cancellation was requested for a job.
func (c *Control) CancelRequested(ctx context.Context, jobID int64) (bool, error) {
	_, err := c.client.Get(ctx, cancelKey(jobID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearCancel removes a job's cancellation flag once it has been honoured.
func (c *Control) ClearCancel(ctx context.Context, jobID int64) error {
	return c.client.Del(ctx, cancelKey(jobID)).Err()
}

func cancelKey(jobID int64) string {
	return fmt.Sprintf("%s%d", cancelKeyPrefix, jobID)
}
