package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelTuningProgress = "tuning_progress"
)

// ProgressMessage is the status update fanned out to observers while a job
// moves through its lifecycle.
type ProgressMessage struct {
	Type     string `json:"type"`
	TenantID int64  `json:"tenant_id"`
	JobID    int64  `json:"job_id"`
	BatchID  string `json:"batch_id"`
	SKU      string `json:"sku"`
	ModelID  string `json:"model_id"`
	Method   string `json:"method"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Publisher publishes progress messages on the shared Redis channel.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress sends a progress message to all subscribers.
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	msg.Type = "job_progress"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelTuningProgress, data).Err()
}

// Subscriber consumes progress messages, typically to fan them out over
// WebSocket.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe blocks, invoking handler for every progress message until the
// context is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelTuningProgress)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // skip malformed payloads
			}

			handler(&progressMsg)
		}
	}
}
