package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Queue is a Redis list used as a dispatch nudge. The job store remains the
// durable source of truth: losing a nudge only delays a job until the next
// scheduler poll, it never loses work.
type Queue struct {
	client    *redis.Client
	queueName string
}

// DispatchMessage tells the scheduler that a job became eligible.
type DispatchMessage struct {
	JobID       int64  `json:"job_id"`
	TenantID    int64  `json:"tenant_id"`
	Fingerprint string `json:"fingerprint"`
	Priority    int    `json:"priority"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push enqueues a dispatch nudge.
func (q *Queue) Push(ctx context.Context, msg *DispatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop blocks until a nudge arrives or the timeout elapses. Returns nil on
// timeout.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*DispatchMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg DispatchMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length returns the number of undelivered nudges.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
